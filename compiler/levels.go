package compiler

// switchLevel marks a switch on the level stack. It cannot collide with a
// user label, which must be an identifier.
const switchLevel = "#SWITCH"

type level struct {
	label string
}

// IncLvl enters a loop carrying label (possibly empty).
func (c *CStack) IncLvl(label string) {
	c.sh.levels = append(c.sh.levels, level{label: label})
}

// IncLvlSwitch enters a switch. A switch catches unlabeled breaks but is
// transparent to continue.
func (c *CStack) IncLvlSwitch() {
	c.sh.levels = append(c.sh.levels, level{label: switchLevel})
}

func (c *CStack) DecLvl() {
	if n := len(c.sh.levels); n > 0 {
		c.sh.levels = c.sh.levels[:n-1]
	}
}

// ChkLvl reports whether a break (or continue, when cont is set) aimed at
// label has an enclosing target. An empty label targets the innermost one.
func (c *CStack) ChkLvl(label string, cont bool) bool {
	for i := len(c.sh.levels) - 1; i >= 0; i-- {
		l := c.sh.levels[i]
		if cont && l.label == switchLevel {
			continue
		}
		if label == "" || l.label == label {
			return true
		}
	}
	return false
}

// Depth is the number of enclosing loops and switches.
func (c *CStack) Depth() int {
	return len(c.sh.levels)
}
