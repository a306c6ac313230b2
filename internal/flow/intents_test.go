package flow

import (
	"testing"

	"github.com/BTreeMap/TriagePipe/internal/models"
)

func TestDetectPaymentIntent_ExtractsAmount(t *testing.T) {
	desc, ok := detectPaymentIntent("i want to pay 350 for the consultation")
	if !ok {
		t.Fatal("expected payment intent to match")
	}
	if desc.Payment == nil || desc.Payment.Amount != 350 {
		t.Errorf("expected amount 350, got %+v", desc.Payment)
	}
	if desc.Type != models.MessageTypeText {
		t.Errorf("payment descriptor should be a text response, got %s", desc.Type)
	}
}

func TestDetectPaymentIntent_DefaultAmount(t *testing.T) {
	desc, ok := detectPaymentIntent("how do i make a payment")
	if !ok {
		t.Fatal("expected payment intent to match")
	}
	if desc.Payment.Amount != DefaultPaymentAmount {
		t.Errorf("expected default amount %d, got %d", DefaultPaymentAmount, desc.Payment.Amount)
	}
}

func TestDetectPaymentIntent_NoMatch(t *testing.T) {
	if _, ok := detectPaymentIntent("i feel unwell"); ok {
		t.Error("payment intent must not match unrelated input")
	}
}

func TestDetectDoctorIntent(t *testing.T) {
	desc, ok := detectDoctorIntent("can i book an appointment with a doctor")
	if !ok {
		t.Fatal("expected doctor intent to match")
	}
	if desc.Type != models.MessageTypeComponent || desc.ComponentType != ComponentTypeDoctors {
		t.Errorf("expected doctors component, got %+v", desc)
	}
}

func TestDetectMedicineIntent(t *testing.T) {
	desc, ok := detectMedicineIntent("which medicine should i buy")
	if !ok {
		t.Fatal("expected medicine intent to match")
	}
	if !desc.ShowMedicines {
		t.Error("medicine intent must set showMedicines")
	}
	if desc.Type != models.MessageTypeText {
		t.Errorf("expected text response, got %s", desc.Type)
	}
}

func TestDetectHospitalIntent(t *testing.T) {
	desc, ok := detectHospitalIntent("where is the nearest hospital")
	if !ok {
		t.Fatal("expected hospital intent to match")
	}
	if desc.Type != models.MessageTypeComponent || desc.ComponentType != ComponentTypeLocation {
		t.Errorf("expected location component, got %+v", desc)
	}
}

func TestDetectIntent_FixedOrder(t *testing.T) {
	// Payment wins over doctor when both keyword groups are present.
	desc, ok := detectIntent("pay the doctor 200")
	if !ok {
		t.Fatal("expected an intent to match")
	}
	if desc.Payment == nil {
		t.Errorf("payment must be detected first, got %+v", desc)
	}

	// Doctor wins over hospital.
	desc, ok = detectIntent("doctor at the hospital")
	if !ok {
		t.Fatal("expected an intent to match")
	}
	if desc.ComponentType != ComponentTypeDoctors {
		t.Errorf("doctor must be detected before hospital, got %+v", desc)
	}
}
