// Package flow implements the stateless intent detectors. They run in a
// fixed order after the symptom flow rules and never read or write
// conversation state.
package flow

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/BTreeMap/TriagePipe/internal/models"
)

// DefaultPaymentAmount is used when a payment utterance carries no number.
const DefaultPaymentAmount = 100

// ComponentTypeLocation triggers the hospital map component on the client.
const ComponentTypeLocation = "location"

// ComponentTypeDoctors triggers the doctor list component on the client.
const ComponentTypeDoctors = "doctors"

var amountPattern = regexp.MustCompile(`\d+`)

// detectIntent runs the detectors in fixed order: payment, doctor,
// medicine, hospital. First match wins.
func detectIntent(input string) (*models.ResponseDescriptor, bool) {
	if desc, ok := detectPaymentIntent(input); ok {
		return desc, true
	}
	if desc, ok := detectDoctorIntent(input); ok {
		return desc, true
	}
	if desc, ok := detectMedicineIntent(input); ok {
		return desc, true
	}
	if desc, ok := detectHospitalIntent(input); ok {
		return desc, true
	}
	return nil, false
}

// detectPaymentIntent matches payment keywords and extracts the first
// numeric amount, defaulting to DefaultPaymentAmount when absent.
func detectPaymentIntent(input string) (*models.ResponseDescriptor, bool) {
	if !containsAny(input, "pay", "payment", "transaction") {
		return nil, false
	}

	amount := DefaultPaymentAmount
	if match := amountPattern.FindString(input); match != "" {
		if parsed, err := strconv.Atoi(match); err == nil {
			amount = parsed
		}
	}

	desc := models.NewTextResponse("Sure, I can set up that payment for you. Please confirm to proceed.")
	desc.Payment = &models.PaymentRequest{Amount: amount, Reason: "consultation fee"}
	return desc, true
}

// detectDoctorIntent offers the doctor list component.
func detectDoctorIntent(input string) (*models.ResponseDescriptor, bool) {
	if !containsAny(input, "doctor", "appointment", "consult") {
		return nil, false
	}
	return models.NewComponentResponse("Here are doctors available for a consultation.", ComponentTypeDoctors), true
}

// detectMedicineIntent shows the medicine catalog.
func detectMedicineIntent(input string) (*models.ResponseDescriptor, bool) {
	if !containsAny(input, "medicine", "medicines", "pharmacy") {
		return nil, false
	}
	desc := models.NewTextResponse("Here are some medicines you might find helpful.")
	desc.ShowMedicines = true
	return desc, true
}

// detectHospitalIntent triggers the location component for nearby hospitals.
func detectHospitalIntent(input string) (*models.ResponseDescriptor, bool) {
	if !containsAny(input, "hospital", "clinic", "emergency") {
		return nil, false
	}
	return models.NewComponentResponse("Here are hospitals near you.", ComponentTypeLocation), true
}

func containsAny(input string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(input, kw) {
			return true
		}
	}
	return false
}
