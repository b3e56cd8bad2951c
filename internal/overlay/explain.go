package overlay

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/yourusername/podium/internal/models"
)

// maxExplainedFactors is how many weight terms the explanation names
const maxExplainedFactors = 2

type factorPhrase struct {
	label   string
	favours string
	against string
}

var factorPhrases = map[models.Factor]factorPhrase{
	models.FactorTrackSuitability: {
		label:   "track-suitability",
		favours: "rewards %s's record of gaining places at this circuit",
		against: "marks down %s's record of losing places at this circuit",
	},
	models.FactorCleanAirPace: {
		label:   "clean-air pace",
		favours: "favors %s's long-run speed in free air",
		against: "counts against %s's long-run speed in free air",
	},
	models.FactorQualifyingImportance: {
		label:   "qualifying-importance",
		favours: "favors %s's one-lap pace",
		against: "counts against %s's one-lap pace",
	},
	models.FactorTeamForm: {
		label:   "team-form",
		favours: "backs %s's constructor momentum",
		against: "counts against %s's constructor form",
	},
	models.FactorWeatherImpact: {
		label:   "weather-impact",
		favours: "suits %s in the forecast conditions",
		against: "hurts %s in the forecast conditions",
	},
}

func weightingLevel(w float64) string {
	switch {
	case w >= 0.8:
		return "high"
	case w >= 0.4:
		return "moderate"
	default:
		return "light"
	}
}

// TopContributions returns up to n non-zero contributions ranked by absolute
// value. Ties keep the input order, which is canonical factor order for
// breakdowns built by ApplyWeights.
func TopContributions(contributions []Contribution, n int) []Contribution {
	ranked := make([]Contribution, 0, len(contributions))
	for _, c := range contributions {
		if c.Value != 0 {
			ranked = append(ranked, c)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return math.Abs(ranked[i].Value) > math.Abs(ranked[j].Value)
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// Explain renders a short deterministic rationale for the leading
// competitor, naming the weight terms that moved its score the most.
func Explain(leader *ScoredCompetitor, chaos bool) string {
	if leader == nil {
		return ""
	}

	subject := leader.ID
	var b strings.Builder
	if leader.Team != "" {
		fmt.Fprintf(&b, "%s (%s) is the predicted winner.", subject, leader.Team)
	} else {
		fmt.Fprintf(&b, "%s is the predicted winner.", subject)
	}

	top := TopContributions(leader.Contributions, maxExplainedFactors)
	if len(top) == 0 {
		b.WriteString(" No weighted factor separates the field, so the order follows the baseline model alone.")
	} else {
		clauses := make([]string, 0, len(top))
		for _, c := range top {
			clauses = append(clauses, describeContribution(c, subject))
		}
		b.WriteString(" ")
		b.WriteString(capitalize(strings.Join(clauses, ", and ")))
		b.WriteString(".")
	}

	if chaos {
		b.WriteString(" Chaos mode added random variance to every score, so this order can change between runs.")
	}

	return b.String()
}

func describeContribution(c Contribution, subject string) string {
	phrase, ok := factorPhrases[c.Factor]
	if !ok {
		phrase = factorPhrase{label: string(c.Factor), favours: "favors %s", against: "counts against %s"}
	}
	action := phrase.favours
	if c.Value < 0 {
		action = phrase.against
	}
	return fmt.Sprintf("%s %s weighting %s", weightingLevel(c.Weight), phrase.label, fmt.Sprintf(action, subject))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
