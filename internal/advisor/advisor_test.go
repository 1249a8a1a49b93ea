package advisor

import (
	"strings"
	"testing"
)

func TestWarfarinWithIbuprofen(t *testing.T) {
	warnings := Check([]Medication{
		{Name: "Warfarin 5mg", GenericName: "Warfarin"},
		{Name: "Brufen", GenericName: "Ibuprofen"},
	})

	if len(warnings) != 1 {
		t.Fatalf("warnings = %d, want 1", len(warnings))
	}
	if !strings.Contains(warnings[0].Message, "bleeding risk") {
		t.Errorf("message = %q, want a bleeding risk warning", warnings[0].Message)
	}
	if warnings[0].Severity != "high" {
		t.Errorf("severity = %q, want high", warnings[0].Severity)
	}
}

func TestSingleMedicationNeverWarns(t *testing.T) {
	if got := Check([]Medication{{Name: "Paracetamol"}}); got != nil {
		t.Errorf("single medication produced warnings: %v", got)
	}
	if got := Check(nil); got != nil {
		t.Errorf("empty list produced warnings: %v", got)
	}
}

func TestBenignPairProducesNothing(t *testing.T) {
	warnings := Check([]Medication{
		{Name: "Paracetamol", GenericName: "Paracetamol"},
		{Name: "Amoxicillin", GenericName: "Amoxicillin"},
	})
	if len(warnings) != 0 {
		t.Errorf("benign pair produced warnings: %v", warnings)
	}
}

func TestMatchIsCaseInsensitiveAndGenericAware(t *testing.T) {
	// Brand names carry no keyword; the generic names do.
	warnings := Check([]Medication{
		{Name: "Acitrom 2", GenericName: "ACENOCOUMAROL"},
		{Name: "Voveran", GenericName: "diclofenac"},
	})
	if len(warnings) != 1 {
		t.Fatalf("warnings = %d, want 1", len(warnings))
	}
}

func TestDuplicateGeneric(t *testing.T) {
	warnings := Check([]Medication{
		{Name: "Dolo 650", GenericName: "Paracetamol"},
		{Name: "Crocin", GenericName: "Paracetamol"},
	})
	if len(warnings) != 1 {
		t.Fatalf("warnings = %d, want 1", len(warnings))
	}
	if !strings.Contains(warnings[0].Message, "duplicate therapy") {
		t.Errorf("message = %q", warnings[0].Message)
	}

	// The same product listed twice is a data entry issue, not a duplicate
	// therapy warning.
	if got := Check([]Medication{
		{Name: "Crocin", GenericName: "Paracetamol"},
		{Name: "Crocin", GenericName: "Paracetamol"},
	}); len(got) != 0 {
		t.Errorf("identical lines produced warnings: %v", got)
	}
}

func TestEveryPairIsChecked(t *testing.T) {
	warnings := Check([]Medication{
		{Name: "Warfarin", GenericName: "Warfarin"},
		{Name: "Paracetamol", GenericName: "Paracetamol"},
		{Name: "Ibuprofen", GenericName: "Ibuprofen"},
		{Name: "Aspirin", GenericName: "Aspirin"},
	})

	// warfarin+ibuprofen, warfarin+aspirin, ibuprofen... aspirin pairs with
	// nothing else in the table here.
	var bleeding int
	for _, w := range warnings {
		if strings.Contains(w.Message, "bleeding") {
			bleeding++
		}
	}
	if bleeding < 2 {
		t.Errorf("expected at least two bleeding warnings, got %v", warnings)
	}
}
