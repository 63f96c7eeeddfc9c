package models

import "time"

// PreAssessment is the pre-surgery evaluation of a case (owned by record management).
// Nil numeric fields were not captured and contribute nothing to any score.
type PreAssessment struct {
	CaseID string `json:"case_id"`

	// Airway
	Mallampati          *int     `json:"mallampati,omitempty"`
	PatilAldrete        *int     `json:"patil_aldrete,omitempty"`
	InterIncisorCm      *float64 `json:"inter_incisor_cm,omitempty"`
	ThyromentalCm       *float64 `json:"thyromental_cm,omitempty"`
	Macocha             *int     `json:"macocha,omitempty"`
	StopBang            *int     `json:"stop_bang,omitempty"`
	TrachealDeviationCm *float64 `json:"tracheal_deviation_cm,omitempty"`
	PriorDifficulty     bool     `json:"prior_difficult_airway"`
	SwallowingProblems  bool     `json:"swallowing_problems"`
	LaryngealStridor    bool     `json:"laryngeal_stridor"`

	// General state
	ASAClass      *int     `json:"asa_class,omitempty"`
	BMI           *float64 `json:"bmi,omitempty"`
	Age           *int     `json:"age,omitempty"`
	FastingHours  *int     `json:"fasting_hours,omitempty"`
	Smoking       bool     `json:"smoking"`
	GLP1Use       bool     `json:"glp1_use"`
	Comorbidities string   `json:"comorbidities"`

	// Vital signs; BloodPressure is free text "systolic/diastolic".
	HeartRate     *int   `json:"heart_rate,omitempty"`
	BloodPressure string `json:"blood_pressure"`
	SpO2RoomAir   *int   `json:"spo2_room_air,omitempty"`
	Glasgow       *int   `json:"glasgow,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Clinician is a user who can receive alert notifications.
type Clinician struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// TreatmentCase is a surgical case with its care team.
type TreatmentCase struct {
	ID                   string      `json:"id"`
	Folio                string      `json:"folio"`
	PatientName          string      `json:"patient_name"`
	Active               bool        `json:"active"`
	ResponsibleClinician Clinician   `json:"responsible_clinician"`
	SecondaryClinicians  []Clinician `json:"secondary_clinicians"`
}
