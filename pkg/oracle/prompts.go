package oracle

import (
	"fmt"
	"strings"

	"github.com/condition-suggestion-engine/internal/domain"
)

const replySchema = `Return ONLY a JSON object with this schema:
{
  "conditions": [
    {
      "name": string (the medical condition name, no lab values),
      "confidence": "high" | "medium" | "low",
      "evidence": string[] (the lab findings supporting it),
      "reasoning": string (one short sentence),
      "severity": "mild" | "moderate" | "severe"
    }
  ]
}
Return {"conditions": []} when nothing is indicated. Do not repeat conditions the member already has. Do not give medical advice.`

// BuildParameterPrompt renders the parameter-based question for the oracle.
func BuildParameterPrompt(parameters []domain.Parameter, member domain.MemberInfo, existingConditions []string) string {
	var b strings.Builder

	b.WriteString("The following lab parameters are outside their reference ranges.\n")
	b.WriteString("Suggest diagnosed medical conditions they may indicate.\n\n")
	b.WriteString("Abnormal parameters:\n")
	for _, p := range parameters {
		line := strings.TrimSpace(fmt.Sprintf("%s: %s %s", p.Name, p.Value, p.Unit))
		if p.NormalRange != "" {
			line += fmt.Sprintf(" (normal: %s)", p.NormalRange)
		}
		b.WriteString("- " + line + "\n")
	}

	writeMemberContext(&b, member, existingConditions)
	b.WriteString("\n" + replySchema)
	return b.String()
}

// BuildReportTypePrompt renders the report-type-based question for the oracle.
func BuildReportTypePrompt(reportTypes []string, member domain.MemberInfo, existingConditions []string) string {
	var b strings.Builder

	b.WriteString("A member has uploaded medical reports of the following types.\n")
	b.WriteString("Suggest diagnosed medical conditions these reports are commonly used to monitor.\n\n")
	b.WriteString("Report types:\n")
	for _, rt := range DistinctReportTypes(reportTypes) {
		b.WriteString("- " + rt + "\n")
	}

	writeMemberContext(&b, member, existingConditions)
	b.WriteString("\n" + replySchema)
	return b.String()
}

func writeMemberContext(b *strings.Builder, member domain.MemberInfo, existingConditions []string) {
	b.WriteString("\nMember:\n")
	if member.Age != nil {
		fmt.Fprintf(b, "- Age: %d\n", *member.Age)
	} else {
		b.WriteString("- Age: unknown\n")
	}
	if member.Gender != "" {
		fmt.Fprintf(b, "- Gender: %s\n", member.Gender)
	} else {
		b.WriteString("- Gender: unknown\n")
	}

	if len(existingConditions) == 0 {
		b.WriteString("- Existing conditions: none\n")
		return
	}
	fmt.Fprintf(b, "- Existing conditions: %s\n", strings.Join(existingConditions, ", "))
}

// DistinctReportTypes trims labels and drops empty and case-insensitive repeats, keeping the
// first spelling seen.
func DistinctReportTypes(reportTypes []string) []string {
	seen := make(map[string]bool, len(reportTypes))
	out := make([]string, 0, len(reportTypes))
	for _, rt := range reportTypes {
		rt = strings.TrimSpace(rt)
		key := strings.ToLower(rt)
		if rt == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, rt)
	}
	return out
}
