package convert

import "fmt"

// MaxCandidates caps the cycled candidate list, including the raw fallback.
const MaxCandidates = 10

// Cycler holds the candidate list of one reconversion episode and a cursor
// into it. The list is populated lazily on first use and the cursor only
// moves forward, wrapping back to the first candidate.
type Cycler struct {
	candidates []string
	index      int
	populated  bool
}

// Populated reports whether the candidate list has been generated.
func (c *Cycler) Populated() bool {
	return c.populated
}

// Populate stores candidates with the cursor before the first entry.
// Entries past MaxCandidates are dropped. An empty list is rejected: an
// episode always has at least the raw fallback.
func (c *Cycler) Populate(candidates []string) error {
	if len(candidates) == 0 {
		return fmt.Errorf("%w: empty candidate list", ErrInvalidState)
	}
	if len(candidates) > MaxCandidates {
		candidates = candidates[:MaxCandidates]
	}
	c.candidates = candidates
	c.index = -1
	c.populated = true
	return nil
}

// Advance moves the cursor one step forward, wrapping to 0 after the last
// candidate, and returns the candidate under it.
func (c *Cycler) Advance() (string, error) {
	if !c.populated {
		return "", fmt.Errorf("%w: advance before candidates were generated", ErrInvalidState)
	}
	if c.index+1 < len(c.candidates) {
		c.index++
	} else {
		c.index = 0
	}
	return c.candidates[c.index], nil
}

// Index returns the cursor, or -1 before the first Advance.
func (c *Cycler) Index() int {
	if !c.populated {
		return -1
	}
	return c.index
}

// Candidates returns the stored list.
func (c *Cycler) Candidates() []string {
	return c.candidates
}

// Reset discards the list and cursor.
func (c *Cycler) Reset() {
	*c = Cycler{}
}
