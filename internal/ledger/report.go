package ledger

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	hundred            = decimal.NewFromInt(100)
	expensivePerCall   = decimal.RequireFromString("0.02")
	suggestionsPercent = decimal.NewFromInt(75)
	criticalPercent    = decimal.NewFromInt(90)
)

// MonthName renders a YYYY-MM key as "January 2006". Unparseable keys are
// returned unchanged.
func MonthName(month string) string {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return month
	}
	return t.Format("January 2006")
}

// MonthTitle is the title of the external record for month.
func MonthTitle(month string) string {
	return "🤖 AI Agent Usage - " + MonthName(month)
}

func (l *Ledger) percentUsed(cost decimal.Decimal) decimal.Decimal {
	budget := l.Budget()
	if budget.Sign() <= 0 {
		return decimal.Zero
	}
	return cost.Div(budget).Mul(hundred).Round(0)
}

func statusEmoji(percent decimal.Decimal) string {
	switch {
	case percent.GreaterThan(criticalPercent):
		return "🚨"
	case percent.GreaterThan(suggestionsPercent):
		return "⚠️"
	default:
		return "✅"
	}
}

func (l *Ledger) emptyReport(month string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## AI Agent Usage Report - %s\n\n", MonthName(month))
	fmt.Fprintf(&b, "**Monthly Budget:** $%s\n\n", l.Budget().StringFixed(2))
	b.WriteString("### Current Usage\n- **Total Cost:** $0.00\n- **Budget Used:** 0%\n\n")
	b.WriteString("### Agent Breakdown\n_No usage yet this month_\n\n---\n")
	b.WriteString("*This issue is automatically updated as agents are used.*\n")
	return b.String()
}

type agentLine struct {
	name  string
	usage *AgentUsage
}

func sortedAgents(mu *MonthlyUsage) []agentLine {
	lines := make([]agentLine, 0, len(mu.Agents))
	for name, au := range mu.Agents {
		lines = append(lines, agentLine{name: name, usage: au})
	}
	sort.Slice(lines, func(i, j int) bool {
		if c := lines[i].usage.Cost.Cmp(lines[j].usage.Cost); c != 0 {
			return c > 0
		}
		return lines[i].name < lines[j].name
	})
	return lines
}

// Report renders the markdown body of the monthly record.
func (l *Ledger) Report(month string) string {
	mu := l.state.Monthly[month]
	if mu == nil || len(mu.Agents) == 0 {
		return l.emptyReport(month)
	}
	budget := l.Budget()
	percent := l.percentUsed(mu.Cost)

	var b strings.Builder
	fmt.Fprintf(&b, "## AI Agent Usage Report - %s\n\n", MonthName(month))
	fmt.Fprintf(&b, "**Monthly Budget:** $%s\n\n", budget.StringFixed(2))
	fmt.Fprintf(&b, "### Current Usage %s\n", statusEmoji(percent))
	fmt.Fprintf(&b, "- **Total Cost:** $%s\n", mu.Cost.StringFixed(2))
	fmt.Fprintf(&b, "- **Budget Used:** %s%%\n", percent.String())
	fmt.Fprintf(&b, "- **Remaining:** $%s\n\n", budget.Sub(mu.Cost).StringFixed(2))

	b.WriteString("### Agent Breakdown\n")
	for _, line := range sortedAgents(mu) {
		fmt.Fprintf(&b, "- **%s:** $%s (%d calls, $%s/call)\n",
			line.name, line.usage.Cost.StringFixed(3), line.usage.Calls, line.usage.AverageCost().StringFixed(4))
	}

	if percent.GreaterThan(suggestionsPercent) {
		b.WriteString("\n### ⚠️ Budget Alert\n")
		b.WriteString(strings.Join(l.Suggestions(month), "\n"))
		b.WriteString("\n")
	}

	b.WriteString("\n---\n")
	fmt.Fprintf(&b, "*Last updated: %s UTC*\n", l.now().UTC().Format("2006-01-02 15:04"))
	b.WriteString("*This issue is automatically updated as agents are used.*\n")
	return b.String()
}

// Suggestions lists agents whose average call cost exceeds $0.02. When none
// qualify a single generic suggestion is returned.
func (l *Ledger) Suggestions(month string) []string {
	var out []string
	if mu := l.state.Monthly[month]; mu != nil {
		for _, line := range sortedAgents(mu) {
			avg := line.usage.AverageCost()
			if avg.GreaterThan(expensivePerCall) {
				out = append(out, fmt.Sprintf("- **%s** is expensive ($%s/call) - consider switching to %s",
					line.name, avg.StringFixed(4), FallbackModel))
			}
		}
	}
	if len(out) == 0 {
		out = append(out, "- Usage is high but efficient - consider increasing budget or reducing automation frequency")
	}
	return out
}

func (l *Ledger) alertBody(month string) string {
	mu := l.state.Monthly[month]
	budget := l.Budget()
	percent := l.percentUsed(mu.Cost)

	var b strings.Builder
	b.WriteString("## Budget Alert\n\n")
	fmt.Fprintf(&b, "We've reached %s%% of our monthly AI budget.\n\n", percent.String())
	fmt.Fprintf(&b, "**Current Usage:** $%s / $%s\n", mu.Cost.StringFixed(2), budget.StringFixed(2))
	fmt.Fprintf(&b, "**Remaining:** $%s\n\n", budget.Sub(mu.Cost).StringFixed(2))
	b.WriteString("### Immediate Actions Needed:\n")
	b.WriteString(strings.Join(l.Suggestions(month), "\n"))
	b.WriteString("\n\n### Options:\n")
	b.WriteString("- [ ] Increase monthly budget\n")
	fmt.Fprintf(&b, "- [ ] Switch agents to cheaper models (%s)\n", FallbackModel)
	b.WriteString("- [ ] Temporarily disable non-critical agents\n")
	b.WriteString("- [ ] Optimize prompt templates to use fewer tokens\n\n")
	b.WriteString("---\n*This alert was automatically created when usage exceeded 90% of budget.*\n")
	return b.String()
}

// CostFooter is appended to pull request comments.
func (l *Ledger) CostFooter(cost, monthlyTotal decimal.Decimal) string {
	return fmt.Sprintf("\n\n---\n💰 **AI Cost:** $%s | **Monthly Total:** $%s/$%s",
		cost.StringFixed(4), monthlyTotal.StringFixed(2), l.Budget().StringFixed(2))
}

// SuggestedBudget is $10 per developer with a $25 floor.
func SuggestedBudget(teamSize int) decimal.Decimal {
	b := decimal.NewFromInt(int64(teamSize) * 10)
	floor := decimal.NewFromInt(25)
	if b.LessThan(floor) {
		return floor
	}
	return b
}
