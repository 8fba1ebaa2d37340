// Package culture implements dictionary-based organizational culture scoring
// over employee review text, using Hofstede's six bipolar dimensions and the
// MIT "Big 9" unipolar dimensions.
package culture

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// HofstedeDimension identifies one of the six bipolar Hofstede axes.
type HofstedeDimension string

const (
	ProcessResults        HofstedeDimension = "process_results"
	JobEmployee           HofstedeDimension = "job_employee"
	ProfessionalParochial HofstedeDimension = "professional_parochial"
	OpenClosed            HofstedeDimension = "open_closed"
	TightLoose            HofstedeDimension = "tight_loose"
	PragmaticNormative    HofstedeDimension = "pragmatic_normative"
)

// MITDimension identifies one of the nine MIT Big 9 culture dimensions.
type MITDimension string

const (
	Agility             MITDimension = "agility"
	Collaboration       MITDimension = "collaboration"
	CustomerOrientation MITDimension = "customer_orientation"
	Diversity           MITDimension = "diversity"
	Execution           MITDimension = "execution"
	Innovation          MITDimension = "innovation"
	Integrity           MITDimension = "integrity"
	Performance         MITDimension = "performance"
	Respect             MITDimension = "respect"
)

// HofstedeDimensions returns all Hofstede dimensions in canonical order.
func HofstedeDimensions() []HofstedeDimension {
	return []HofstedeDimension{
		ProcessResults, JobEmployee, ProfessionalParochial,
		OpenClosed, TightLoose, PragmaticNormative,
	}
}

// MITDimensions returns all MIT Big 9 dimensions in canonical order.
func MITDimensions() []MITDimension {
	return []MITDimension{
		Agility, Collaboration, CustomerOrientation, Diversity,
		Execution, Innovation, Integrity, Performance, Respect,
	}
}

// BipolarKeywords holds the two opposing keyword lists of a Hofstede
// dimension. A review matching PoleA keywords pulls the score toward -1,
// PoleB toward +1.
type BipolarKeywords struct {
	PoleA []string `yaml:"pole_a"`
	PoleB []string `yaml:"pole_b"`
}

// Lexicon is the immutable keyword dictionary driving review scoring.
// Keyword lists are lower-cased and never mutated after load. Matching is
// substring containment over lower-cased text, not word-boundary
// tokenization: "agile" inside "fragile" is a known, accepted false
// positive.
type Lexicon struct {
	Hofstede map[HofstedeDimension]BipolarKeywords `yaml:"hofstede"`
	MIT      map[MITDimension][]string             `yaml:"mit_big_9"`
}

// DefaultLexicon returns the built-in keyword dictionary.
func DefaultLexicon() *Lexicon {
	return &Lexicon{
		Hofstede: map[HofstedeDimension]BipolarKeywords{
			// Pole A: process-oriented. Pole B: results-oriented.
			ProcessResults: {
				PoleA: []string{
					"bureaucratic", "red tape", "protocol", "paperwork",
					"hierarchy", "chain of command", "slow decision",
					"approval process", "layers of management",
				},
				PoleB: []string{
					"results-driven", "results oriented", "get things done",
					"outcome focused", "deliverables", "impact focused",
					"metrics driven", "bias for action",
				},
			},
			// Pole A: job-centric. Pole B: employee-centric.
			JobEmployee: {
				PoleA: []string{
					"just a number", "cog in the machine", "burnout",
					"churn and burn", "expendable", "long hours expected",
					"grind culture", "overworked",
				},
				PoleB: []string{
					"cares about employees", "work life balance", "wellbeing",
					"supportive management", "family friendly",
					"generous benefits", "people first", "flexible hours",
				},
			},
			// Pole A: parochial (company-as-identity). Pole B: professional.
			ProfessionalParochial: {
				PoleA: []string{
					"like a family", "tight knit", "social events",
					"company loyalty", "old boys club", "drink the kool-aid",
					"culture fit above all",
				},
				PoleB: []string{
					"professional development", "industry experts",
					"credentials", "expertise valued", "best in class talent",
					"professional standards", "career growth",
				},
			},
			// Pole A: closed system. Pole B: open system.
			OpenClosed: {
				PoleA: []string{
					"cliquey", "insular", "secretive", "hard to fit in",
					"old guard", "closed off", "siloed", "information hoarding",
				},
				PoleB: []string{
					"welcoming", "transparent", "open communication",
					"open door", "easy to approach", "newcomers feel at home",
					"honest feedback",
				},
			},
			// Pole A: loose control. Pole B: tight control.
			TightLoose: {
				PoleA: []string{
					"autonomy", "casual", "relaxed", "freedom",
					"informal", "self directed", "trusted to deliver",
				},
				PoleB: []string{
					"strict", "micromanage", "dress code", "rigid",
					"heavily controlled", "punch the clock", "surveillance",
					"compliance driven",
				},
			},
			// Pole A: normative (rule-driven). Pole B: pragmatic (market-driven).
			PragmaticNormative: {
				PoleA: []string{
					"by the book", "rules are rules", "dogmatic",
					"procedure first", "rigid standards", "inflexible policy",
				},
				PoleB: []string{
					"pragmatic", "customer first", "whatever works",
					"practical", "adaptable approach", "market driven",
					"common sense",
				},
			},
		},
		MIT: map[MITDimension][]string{
			Agility: {
				"agile", "nimble", "fast paced", "quick to adapt",
				"responsive", "rapid change", "move quickly", "adapts fast",
			},
			Collaboration: {
				"collaborative", "teamwork", "cooperation", "cross functional",
				"helpful colleagues", "supportive team", "work together",
			},
			CustomerOrientation: {
				"customer focused", "client first", "customer satisfaction",
				"client service", "customer centric", "end user",
				"client relationships",
			},
			Diversity: {
				"diverse", "inclusion", "inclusive culture",
				"equal opportunity", "women in leadership", "belonging",
				"underrepresented",
			},
			Execution: {
				"execution", "well organized", "operational excellence",
				"disciplined", "follow through", "gets things done",
				"efficient",
			},
			Innovation: {
				"innovative", "cutting edge", "creative", "new ideas",
				"experimentation", "state of the art", "forward thinking",
			},
			Integrity: {
				"integrity", "ethical", "honest", "trustworthy",
				"do the right thing", "accountable", "principled",
			},
			Performance: {
				"high performers", "meritocracy", "performance culture",
				"results rewarded", "top talent", "high achievers",
				"pay for performance",
			},
			Respect: {
				"respectful", "valued", "appreciated", "dignity",
				"listened to", "treated fairly", "recognition",
			},
		},
	}
}

// LoadLexicon reads a YAML lexicon override from path. The file replaces the
// built-in dictionary wholesale; partial overrides are not merged.
func LoadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "culture: read lexicon %s", path)
	}

	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, eris.Wrapf(err, "culture: parse lexicon %s", path)
	}
	if err := lex.Validate(); err != nil {
		return nil, err
	}
	return &lex, nil
}

// Validate checks the lexicon invariants: every dimension present, every
// keyword list non-empty, every keyword lower-cased and non-blank.
func (l *Lexicon) Validate() error {
	for _, dim := range HofstedeDimensions() {
		kw, ok := l.Hofstede[dim]
		if !ok {
			return eris.Errorf("culture: lexicon missing hofstede dimension %s", dim)
		}
		if len(kw.PoleA) == 0 || len(kw.PoleB) == 0 {
			return eris.Errorf("culture: lexicon dimension %s has an empty pole", dim)
		}
		if err := validateKeywords(string(dim), kw.PoleA); err != nil {
			return err
		}
		if err := validateKeywords(string(dim), kw.PoleB); err != nil {
			return err
		}
	}
	for _, dim := range MITDimensions() {
		kws, ok := l.MIT[dim]
		if !ok {
			return eris.Errorf("culture: lexicon missing mit dimension %s", dim)
		}
		if len(kws) == 0 {
			return eris.Errorf("culture: lexicon dimension %s has no keywords", dim)
		}
		if err := validateKeywords(string(dim), kws); err != nil {
			return err
		}
	}
	return nil
}

func validateKeywords(dim string, kws []string) error {
	for _, kw := range kws {
		if strings.TrimSpace(kw) == "" {
			return eris.Errorf("culture: lexicon dimension %s has a blank keyword", dim)
		}
		if kw != strings.ToLower(kw) {
			return eris.Errorf("culture: lexicon dimension %s keyword %q is not lower-case", dim, kw)
		}
	}
	return nil
}
