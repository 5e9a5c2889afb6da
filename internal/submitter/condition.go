package submitter

import (
	"strconv"
	"strings"

	"github.com/jmehdipour/formdesk/internal/model"
)

// Matches evaluates a feed condition against the submission. A disabled
// condition or one without rules always matches.
func Matches(c model.Condition, sub model.Submission, r FieldResolver) bool {
	if !c.Enabled || len(c.Rules) == 0 {
		return true
	}

	anyOf := strings.EqualFold(c.LogicType, "any")
	for _, rule := range c.Rules {
		ok := ruleMatches(rule, Field(r, sub, rule.Field))
		if anyOf && ok {
			return true
		}
		if !anyOf && !ok {
			return false
		}
	}
	return !anyOf
}

func ruleMatches(rule model.ConditionRule, got string) bool {
	want := strings.TrimSpace(rule.Value)
	g, w := strings.ToLower(got), strings.ToLower(want)

	op := strings.ToLower(strings.TrimSpace(rule.Operator))
	switch op {
	case "", "is":
		return g == w
	case "isnot":
		return g != w
	case "contains":
		return strings.Contains(g, w)
	case "starts_with":
		return strings.HasPrefix(g, w)
	case "ends_with":
		return strings.HasSuffix(g, w)
	case ">", "<":
		a, errA := strconv.ParseFloat(got, 64)
		b, errB := strconv.ParseFloat(want, 64)
		if errA != nil || errB != nil {
			return false
		}
		if op == ">" {
			return a > b
		}
		return a < b
	default:
		return false
	}
}
