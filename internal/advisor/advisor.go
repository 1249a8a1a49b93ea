package advisor

import (
	"fmt"
	"strings"
)

// Medication is one staged prescription line as the advisor sees it
type Medication struct {
	Name        string
	GenericName string
}

// Warning is one flagged pairing between two staged medications
type Warning struct {
	First    string `json:"first"`
	Second   string `json:"second"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// pairRule flags any pairing where one medication matches a keyword from
// group a and the other from group b. Matching is a case-insensitive
// substring test against the brand and generic names.
type pairRule struct {
	a, b     []string
	severity string
	message  string
}

var rules = []pairRule{
	{
		a:        []string{"warfarin", "acenocoumarol", "acitrom", "heparin", "enoxaparin", "rivaroxaban", "apixaban", "dabigatran"},
		b:        []string{"ibuprofen", "diclofenac", "naproxen", "ketorolac", "aceclofenac", "nimesulide", "indomethacin", "mefenamic"},
		severity: "high",
		message:  "bleeding risk: anticoagulant combined with an NSAID",
	},
	{
		a:        []string{"warfarin", "acenocoumarol", "acitrom", "heparin", "enoxaparin", "rivaroxaban", "apixaban", "dabigatran"},
		b:        []string{"aspirin", "clopidogrel", "ticagrelor", "prasugrel"},
		severity: "high",
		message:  "bleeding risk: anticoagulant combined with an antiplatelet",
	},
	{
		a:        []string{"ibuprofen", "diclofenac", "naproxen", "ketorolac", "aceclofenac", "nimesulide", "indomethacin", "mefenamic", "aspirin"},
		b:        []string{"prednisolone", "prednisone", "dexamethasone", "hydrocortisone", "methylprednisolone"},
		severity: "moderate",
		message:  "gastrointestinal bleeding risk: NSAID combined with a corticosteroid",
	},
	{
		a:        []string{"azithromycin", "clarithromycin", "erythromycin"},
		b:        []string{"atorvastatin", "simvastatin", "lovastatin"},
		severity: "moderate",
		message:  "myopathy risk: macrolide raises statin exposure",
	},
	{
		a:        []string{"ciprofloxacin", "ofloxacin", "levofloxacin", "norfloxacin", "moxifloxacin"},
		b:        []string{"ibuprofen", "diclofenac", "naproxen", "ketorolac", "aceclofenac", "nimesulide"},
		severity: "moderate",
		message:  "seizure risk: fluoroquinolone combined with an NSAID",
	},
	{
		a:        []string{"tramadol"},
		b:        []string{"fluoxetine", "sertraline", "escitalopram", "paroxetine"},
		severity: "moderate",
		message:  "serotonin syndrome risk: tramadol combined with an SSRI",
	},
}

// Check evaluates every pair of staged medications against the rule table.
// Fewer than two medications yields no warnings. The check is pure: no
// network, no state.
func Check(meds []Medication) []Warning {
	if len(meds) < 2 {
		return nil
	}
	var warnings []Warning
	for i := 0; i < len(meds); i++ {
		for j := i + 1; j < len(meds); j++ {
			warnings = append(warnings, checkPair(meds[i], meds[j])...)
		}
	}
	return warnings
}

func checkPair(m1, m2 Medication) []Warning {
	var warnings []Warning
	for _, r := range rules {
		if (matches(m1, r.a) && matches(m2, r.b)) || (matches(m2, r.a) && matches(m1, r.b)) {
			warnings = append(warnings, Warning{
				First:    m1.Name,
				Second:   m2.Name,
				Severity: r.severity,
				Message:  r.message,
			})
		}
	}
	if dup := duplicateGeneric(m1, m2); dup != "" {
		warnings = append(warnings, Warning{
			First:    m1.Name,
			Second:   m2.Name,
			Severity: "moderate",
			Message:  fmt.Sprintf("duplicate therapy: both contain %s", dup),
		})
	}
	return warnings
}

func matches(m Medication, keywords []string) bool {
	name := strings.ToLower(m.Name)
	generic := strings.ToLower(m.GenericName)
	for _, kw := range keywords {
		if strings.Contains(name, kw) || strings.Contains(generic, kw) {
			return true
		}
	}
	return false
}

// duplicateGeneric reports the shared generic ingredient when two distinct
// brands carry the same one, e.g. two paracetamol products.
func duplicateGeneric(m1, m2 Medication) string {
	g1 := strings.ToLower(strings.TrimSpace(m1.GenericName))
	g2 := strings.ToLower(strings.TrimSpace(m2.GenericName))
	if g1 == "" || g1 != g2 {
		return ""
	}
	if strings.EqualFold(m1.Name, m2.Name) {
		return ""
	}
	return g1
}
