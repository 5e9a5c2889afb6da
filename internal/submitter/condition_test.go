package submitter

import (
	"testing"

	"github.com/jmehdipour/formdesk/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestMatches(t *testing.T) {
	sub := testSubmission()
	sub.Fields["4"] = "Sales"
	sub.Fields["5"] = "12"

	rule := func(field, op, value string) model.ConditionRule {
		return model.ConditionRule{Field: field, Operator: op, Value: value}
	}

	cases := []struct {
		name string
		cond model.Condition
		want bool
	}{
		{"disabled", model.Condition{Rules: []model.ConditionRule{rule("4", "is", "x")}}, true},
		{"no rules", model.Condition{Enabled: true}, true},
		{"is case-insensitive", model.Condition{Enabled: true, Rules: []model.ConditionRule{rule("4", "is", "sales")}}, true},
		{"isnot", model.Condition{Enabled: true, Rules: []model.ConditionRule{rule("4", "isnot", "Support")}}, true},
		{"contains", model.Condition{Enabled: true, Rules: []model.ConditionRule{rule("3", "contains", "MESSAGE")}}, true},
		{"starts_with", model.Condition{Enabled: true, Rules: []model.ConditionRule{rule("1", "starts_with", "customer@")}}, true},
		{"ends_with", model.Condition{Enabled: true, Rules: []model.ConditionRule{rule("1", "ends_with", ".org")}}, false},
		{"greater", model.Condition{Enabled: true, Rules: []model.ConditionRule{rule("5", ">", "10")}}, true},
		{"less non numeric", model.Condition{Enabled: true, Rules: []model.ConditionRule{rule("4", "<", "10")}}, false},
		{"all fails on one", model.Condition{Enabled: true, LogicType: "all", Rules: []model.ConditionRule{
			rule("4", "is", "Sales"), rule("5", "is", "13"),
		}}, false},
		{"any passes on one", model.Condition{Enabled: true, LogicType: "any", Rules: []model.ConditionRule{
			rule("4", "is", "Support"), rule("5", "is", "12"),
		}}, true},
		{"unknown operator", model.Condition{Enabled: true, Rules: []model.ConditionRule{rule("4", "~=", "Sales")}}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Matches(tc.cond, sub, SubmissionFields{}))
		})
	}
}
