package heapscan

// Permissions is the rwxp/s column of a mapping.
// It is informational only, classification never looks at it.
type Permissions uint8

const (
	PermRead Permissions = 1 << iota
	PermWrite
	PermExec
	PermPrivate
	PermShared
)

func (p Permissions) String() string {
	res := [4]byte{'-', '-', '-', '-'}
	if p.Has(PermRead) {
		res[0] = 'r'
	}
	if p.Has(PermWrite) {
		res[1] = 'w'
	}
	if p.Has(PermExec) {
		res[2] = 'x'
	}
	switch {
	case p.Has(PermPrivate):
		res[3] = 'p'
	case p.Has(PermShared):
		res[3] = 's'
	}
	return string(res[:])
}

func (p Permissions) Has(flags Permissions) bool {
	return p&flags == flags
}

// ParsePermissions decodes a field such as "rw-p".
// Fields shorter than four bytes decode to no permissions at all.
func ParsePermissions(s []byte) (p Permissions) {
	if len(s) < 4 {
		return
	}
	if s[0] == 'r' {
		p |= PermRead
	}
	if s[1] == 'w' {
		p |= PermWrite
	}
	if s[2] == 'x' {
		p |= PermExec
	}
	switch s[3] {
	case 'p':
		p |= PermPrivate
	case 's':
		p |= PermShared
	}
	return
}
