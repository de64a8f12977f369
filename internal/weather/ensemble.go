package weather

import (
	"fmt"
	"strconv"
	"strings"
)

// EnsembleVariable is one retrievable series: a variable of one member.
// Member 0 is the control run.
type EnsembleVariable struct {
	Variable Variable
	Member   int
}

// String encodes the pair as "<variable>" for the control run and
// "<variable>_memberNN" otherwise.
func (e EnsembleVariable) String() string {
	return memberName(e.Variable.String(), e.Member)
}

const memberSuffix = "_member"

func memberName(base string, member int) string {
	if member == 0 {
		return base
	}
	return fmt.Sprintf("%s%s%02d", base, memberSuffix, member)
}

// ParseEnsembleVariable decodes the String form of a stored ensemble
// variable. Only canonical encodings are accepted.
func ParseEnsembleVariable(s string) (EnsembleVariable, bool) {
	base, member := s, 0
	if pos := strings.LastIndex(s, memberSuffix); pos > 0 {
		n, err := strconv.Atoi(s[pos+len(memberSuffix):])
		if err != nil || n <= 0 {
			return EnsembleVariable{}, false
		}
		base, member = s[:pos], n
	}
	v, ok := ParseStoredVariable(base)
	if !ok {
		return EnsembleVariable{}, false
	}
	e := EnsembleVariable{Variable: v, Member: member}
	if e.String() != s {
		return EnsembleVariable{}, false
	}
	return e, true
}

// Expand returns vars x [0, d.Members), variable major.
func Expand(d Domain, vars []Variable) []EnsembleVariable {
	out := make([]EnsembleVariable, 0, len(vars)*d.Members)
	for _, v := range vars {
		for m := 0; m < d.Members; m++ {
			out = append(out, EnsembleVariable{Variable: v, Member: m})
		}
	}
	return out
}

// expandStored is Expand over the stored inputs of vars, without
// duplicates. It is what a reader needs to prefetch.
func expandStored(d Domain, vars []Variable) []EnsembleVariable {
	seen := make(map[Variable]bool)
	var stored []Variable
	for _, v := range vars {
		for _, in := range v.StoredInputs() {
			if !seen[in] {
				seen[in] = true
				stored = append(stored, in)
			}
		}
	}
	return Expand(d, stored)
}

// ColumnName names the output column of base (a variable or daily
// aggregate key) for one member. With more than one domain in the response
// the domain name is appended.
func ColumnName(base string, member int, domain DomainName, multiDomain bool) string {
	name := memberName(base, member)
	if multiDomain {
		name += "_" + string(domain)
	}
	return name
}
