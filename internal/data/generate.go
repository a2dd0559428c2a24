package data

import (
	"encoding/csv"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
)

var severities = []string{"mild", "moderate", "severe"}

// GenerateSyntheticCohort writes a synthetic clinical cohort CSV with
// baseline measurements, follow-up columns (which feature preparation must
// drop) and a severity label driven by the baseline values. Intended for
// development and tests, not for the production data path.
func GenerateSyntheticCohort(n int, seed int64, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"patient_id", "age", "sex",
		"bmi_baseline", "systolic_bp_baseline", "heart_rate_baseline",
		"crp_baseline", "lymphocyte_baseline", "creatinine_baseline",
		"oxygen_saturation_baseline",
		"crp_week4", "oxygen_saturation_week4", "crp_followup",
		"severity",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(seed))
	for i := 0; i < n; i++ {
		age := 35 + rng.Float64()*50
		sex := float64(rng.Intn(2))
		bmi := 22 + rng.NormFloat64()*4
		sbp := 115 + rng.NormFloat64()*15 + (age-55)*0.3
		hr := 72 + rng.NormFloat64()*10
		crp := math.Abs(rng.NormFloat64()) * 40
		lymph := 1.8 - crp*0.01 + rng.NormFloat64()*0.4
		creat := 0.9 + rng.NormFloat64()*0.2 + (age-55)*0.004
		spo2 := 97 - crp*0.08 + rng.NormFloat64()*1.2

		// Severity follows an inflammation/oxygenation score with noise.
		score := crp*0.035 + (97-spo2)*0.3 + (age-55)*0.02 + (1.8-lymph)*0.5 + rng.NormFloat64()*0.5
		sev := severities[0]
		if score > 2.4 {
			sev = severities[2]
		} else if score > 1.2 {
			sev = severities[1]
		}
		if rng.Float64() < 0.01 {
			sev = "" // missing label, dropped by preparation
		}

		crpW4 := crp * (0.4 + rng.Float64()*0.5)
		spo2W4 := spo2 + rng.Float64()*2
		crpFU := crpW4 * (0.3 + rng.Float64()*0.5)

		rec := []string{
			"P" + strconv.Itoa(100000+i),
			strconv.FormatFloat(age, 'f', 1, 64),
			strconv.FormatFloat(sex, 'f', 0, 64),
			strconv.FormatFloat(bmi, 'f', 2, 64),
			strconv.FormatFloat(sbp, 'f', 1, 64),
			strconv.FormatFloat(hr, 'f', 1, 64),
			strconv.FormatFloat(crp, 'f', 2, 64),
			strconv.FormatFloat(lymph, 'f', 2, 64),
			strconv.FormatFloat(creat, 'f', 2, 64),
			strconv.FormatFloat(spo2, 'f', 1, 64),
			strconv.FormatFloat(crpW4, 'f', 2, 64),
			strconv.FormatFloat(spo2W4, 'f', 1, 64),
			strconv.FormatFloat(crpFU, 'f', 2, 64),
			sev,
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}
