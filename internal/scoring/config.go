package scoring

// Tier awards Points when a value crosses Bound.
type Tier struct {
	Bound  float64 `json:"bound" yaml:"bound"`
	Points float64 `json:"points" yaml:"points"`
}

// AtLeast tiers match "value >= Bound"; the first matching tier wins, so order them by descending Bound.
type AtLeast []Tier

func (t AtLeast) points(v float64) float64 {
	for _, tier := range t {
		if v >= tier.Bound {
			return tier.Points
		}
	}
	return 0
}

// Below tiers match "value < Bound"; order them by ascending Bound.
type Below []Tier

func (t Below) points(v float64) float64 {
	for _, tier := range t {
		if v < tier.Bound {
			return tier.Points
		}
	}
	return 0
}

// PressureTier matches when systolic > SystolicAbove or diastolic > DiastolicAbove.
type PressureTier struct {
	SystolicAbove  int     `json:"systolic_above" yaml:"systolic_above"`
	DiastolicAbove int     `json:"diastolic_above" yaml:"diastolic_above"`
	Points         float64 `json:"points" yaml:"points"`
}

// Weights combine the component scores into the overall score.
type Weights struct {
	Airway         float64 `json:"airway" yaml:"airway"`
	Cardiovascular float64 `json:"cardiovascular" yaml:"cardiovascular"`
	Respiratory    float64 `json:"respiratory" yaml:"respiratory"`
}

type AirwayTable struct {
	Mallampati        map[int]float64
	BMI               AtLeast
	PatilAldrete      map[int]float64
	InterIncisor      Below
	Thyromental       Below
	PriorDifficulty   float64
	Swallowing        float64
	Stridor           float64
	StopBang          AtLeast
	DeviationAboveCm  float64
	TrachealDeviation float64
}

type CardiovascularTable struct {
	ASA           map[int]float64
	Age           AtLeast
	HeartRateHigh int
	HeartRateLow  int
	HeartRate     float64
	BloodPressure []PressureTier
	Terms         []string
	Comorbidity   float64
}

type RespiratoryTable struct {
	SpO2        Below
	Smoking     float64
	BMI         AtLeast
	StopBang    AtLeast
	Terms       []string
	Comorbidity float64
	Glasgow     Below
}

type DifficultAirwayTable struct {
	Mallampati      map[int]float64
	InterIncisor    Below
	Thyromental     Below
	PriorDifficulty float64
	BMI             AtLeast
	Macocha         AtLeast
}

type ComplicationTable struct {
	ASA                   map[int]float64
	Age                   AtLeast
	Fasting               Below
	ComorbidityCountAbove int
	Comorbidities         float64
	Glasgow               Below
	SpO2                  Below
}

// Config holds every weight and point table used by the scorers.
// Version is persisted as the profile's calculation_version, so any table change needs a new Version.
type Config struct {
	Version         string
	Weights         Weights
	Airway          AirwayTable
	Cardiovascular  CardiovascularTable
	Respiratory     RespiratoryTable
	DifficultAirway DifficultAirwayTable
	Complication    ComplicationTable
}

// DefaultVersion is the calculation version of DefaultConfig.
const DefaultVersion = "1.0"

// DefaultConfig returns a fresh copy of the clinical point tables.
func DefaultConfig() Config {
	return Config{
		Version: DefaultVersion,
		Weights: Weights{Airway: 0.4, Cardiovascular: 0.3, Respiratory: 0.3},
		Airway: AirwayTable{
			Mallampati:        map[int]float64{1: 0, 2: 20, 3: 50, 4: 80},
			BMI:               AtLeast{{35, 30}, {30, 20}, {25, 10}},
			PatilAldrete:      map[int]float64{1: 40, 2: 20, 3: 10, 4: 0},
			InterIncisor:      Below{{3, 25}, {4, 15}},
			Thyromental:       Below{{6, 20}, {7, 10}},
			PriorDifficulty:   40,
			Swallowing:        15,
			Stridor:           25,
			StopBang:          AtLeast{{5, 20}, {3, 10}},
			DeviationAboveCm:  2,
			TrachealDeviation: 15,
		},
		Cardiovascular: CardiovascularTable{
			ASA:           map[int]float64{1: 0, 2: 10, 3: 30, 4: 60, 5: 80, 6: 90},
			Age:           AtLeast{{80, 30}, {70, 20}, {60, 10}},
			HeartRateHigh: 100,
			HeartRateLow:  50,
			HeartRate:     15,
			BloodPressure: []PressureTier{
				{SystolicAbove: 180, DiastolicAbove: 110, Points: 25},
				{SystolicAbove: 160, DiastolicAbove: 100, Points: 15},
			},
			Terms: []string{
				"hipertension", "diabetes", "infarto", "cardiaco", "coronario",
				"arritmia", "insuficiencia", "angina", "marcapasos",
				"hypertension", "infarction", "cardiac", "coronary", "arrhythmia",
				"heart failure", "pacemaker",
			},
			Comorbidity: 15,
		},
		Respiratory: RespiratoryTable{
			SpO2:     Below{{90, 40}, {95, 20}},
			Smoking:  20,
			BMI:      AtLeast{{35, 15}},
			StopBang: AtLeast{{5, 25}, {3, 15}},
			Terms: []string{
				"asma", "epoc", "apnea", "respiratorio", "pulmonar",
				"bronquitis", "enfisema", "fibrosis",
				"asthma", "copd", "respiratory", "pulmonary", "bronchitis", "emphysema",
			},
			Comorbidity: 20,
			Glasgow:     Below{{13, 20}, {15, 10}},
		},
		DifficultAirway: DifficultAirwayTable{
			Mallampati:      map[int]float64{1: 5, 2: 15, 3: 35, 4: 65},
			InterIncisor:    Below{{3, 30}},
			Thyromental:     Below{{6, 25}},
			PriorDifficulty: 50,
			BMI:             AtLeast{{35, 20}},
			Macocha:         AtLeast{{3, 25}},
		},
		Complication: ComplicationTable{
			ASA:                   map[int]float64{1: 5, 2: 15, 3: 35, 4: 60, 5: 85, 6: 95},
			Age:                   AtLeast{{80, 25}, {70, 15}, {60, 10}},
			Fasting:               Below{{6, 15}},
			ComorbidityCountAbove: 2,
			Comorbidities:         20,
			Glasgow:               Below{{15, 15}},
			SpO2:                  Below{{95, 20}},
		},
	}
}

// clone deep-copies c so a Scorer never shares mutable tables with its caller.
func (c Config) clone() Config {
	out := c
	out.Airway.Mallampati = cloneMap(c.Airway.Mallampati)
	out.Airway.PatilAldrete = cloneMap(c.Airway.PatilAldrete)
	out.Airway.BMI = append(AtLeast(nil), c.Airway.BMI...)
	out.Airway.InterIncisor = append(Below(nil), c.Airway.InterIncisor...)
	out.Airway.Thyromental = append(Below(nil), c.Airway.Thyromental...)
	out.Airway.StopBang = append(AtLeast(nil), c.Airway.StopBang...)

	out.Cardiovascular.ASA = cloneMap(c.Cardiovascular.ASA)
	out.Cardiovascular.Age = append(AtLeast(nil), c.Cardiovascular.Age...)
	out.Cardiovascular.BloodPressure = append([]PressureTier(nil), c.Cardiovascular.BloodPressure...)
	out.Cardiovascular.Terms = append([]string(nil), c.Cardiovascular.Terms...)

	out.Respiratory.SpO2 = append(Below(nil), c.Respiratory.SpO2...)
	out.Respiratory.BMI = append(AtLeast(nil), c.Respiratory.BMI...)
	out.Respiratory.StopBang = append(AtLeast(nil), c.Respiratory.StopBang...)
	out.Respiratory.Terms = append([]string(nil), c.Respiratory.Terms...)
	out.Respiratory.Glasgow = append(Below(nil), c.Respiratory.Glasgow...)

	out.DifficultAirway.Mallampati = cloneMap(c.DifficultAirway.Mallampati)
	out.DifficultAirway.InterIncisor = append(Below(nil), c.DifficultAirway.InterIncisor...)
	out.DifficultAirway.Thyromental = append(Below(nil), c.DifficultAirway.Thyromental...)
	out.DifficultAirway.BMI = append(AtLeast(nil), c.DifficultAirway.BMI...)
	out.DifficultAirway.Macocha = append(AtLeast(nil), c.DifficultAirway.Macocha...)

	out.Complication.ASA = cloneMap(c.Complication.ASA)
	out.Complication.Age = append(AtLeast(nil), c.Complication.Age...)
	out.Complication.Fasting = append(Below(nil), c.Complication.Fasting...)
	out.Complication.Glasgow = append(Below(nil), c.Complication.Glasgow...)
	out.Complication.SpO2 = append(Below(nil), c.Complication.SpO2...)
	return out
}

func cloneMap(m map[int]float64) map[int]float64 {
	out := make(map[int]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
