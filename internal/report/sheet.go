package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cohortkit/harmonyqc/internal/qaqc"
)

// sheetColumns is the fixed column order of the paste-ready export. The
// variable label itself is column A of the target sheet, so it is not
// emitted.
var sheetColumns = []string{"n", "nulls_missing", "mean", "median", "max", "min", "sd", "enums", "participants"}

// DefaultSheetLabels is the row order of the paste-ready export. One line
// is emitted per label, blank when the label has no summary row.
var DefaultSheetLabels = []string{
	"8-epi-PGF2a in urine",
	"Activity LP-PLA2 in blood",
	"AHI Apnea-Hypopnea Index",
	"Albumin creatinine ratio in urine",
	"Albumin in blood",
	"Albumin in urine",
	"Alcohol Consumption",
	"ALT SGPT",
	"AST SGOT",
	"Basophils Count",
	"Bilirubin Conjugated Direct",
	"Bilirubin total",
	"BMI",
	"BNP",
	"Body weight",
	"BUN",
	"BUN Creatinine ratio",
	"CRP c-reactive protein",
	"CAC Score",
	"CAC volume",
	"Carotid IMT",
	"Carotid stenosis left",
	"Carotid stenosis right",
	"CD40 in blood",
	"CESD score",
	"Chloride in blood",
	"Cigarette smoking",
	"Creatinine in blood",
	"Creatinine in urine",
	"Cystatin C in blood",
	"D-Dimer",
	"Diastolic blood pressure",
	"E-selectin in blood",
	"EGFR",
	"Eosinophils count",
	"Factor VII",
	"Factor VIII",
	"Fasting blood glucose",
	"Fasting lipids",
	"Ferritin",
	"FEV1 - Forced Expiratory Volume in 1 sec",
	"FEV1 FVC",
	"Fibrinogen",
	"Fruit consumption",
	"FVC - Forced Vital Capacity",
	"GFR",
	"Glucose in blood",
	"HDL",
	"Heart rate",
	"Height",
	"Hematocrit",
	"Hemoglobin",
	"Hemoglobin A1c",
	"Hip circumference",
	"ICAM1 in blood",
	"Insulin in blood",
	"Interleukin 1 beta in blood",
	"Interleukin 10 in blood",
	"interleukin 6 in blood",
	"Lactate Dehydrogenase LDH",
	"Lactate in blood",
	"LDL",
	"Lymphocytes count",
	"Lymphocytes percent",
	"Mass LP-PLA2 in blood",
	"MCP1 in blood",
	"Mean arterial pressure",
	"Mean corpuscular hemoglobin",
	"Mean corpuscular hemoglobin concentration",
	"Mean corpuscular volume",
	"Mean platelet volume",
	"MMP9 in blood",
	"Monocytes count",
	"Myeloperoxidase in blood",
	"Neutrophils count",
	"Neutrophils percent",
	"NT pro BNP",
	"Osteoprotegerin in blood",
	"P-selectin in blood",
	"Platelet count",
	"Potassium in blood",
	"PR interval",
	"QRS interval",
	"QT interval",
	"Red blood cell count",
	"Red cell distribution width",
	"Sleep hours",
	"Sodium in blood",
	"Sodium intake",
	"SpO2",
	"Systolic blood pressure",
	"Temperature",
	"TNFa in blood",
	"TNFa-R1 in blood",
	"Total cholesterol in blood",
	"Triglycerides in blood",
	"Troponin all types",
	"Vegetable consumption",
	"Von Willebrand factor",
	"Waist circumference",
	"Waist-hip ratio",
	"White blood cell count",
}

// LoadSheetLabels reads a label order file, one label per line. Blank
// lines and lines starting with '#' are skipped.
func LoadSheetLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open label file: %w", err)
	}
	defer f.Close()

	var labels []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		labels = append(labels, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read label file: %w", err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("label file %s contains no labels", path)
	}
	return labels, nil
}

// WriteSheet emits the paste-ready TSV export: one line per label in
// order, values raw with no grouping so the spreadsheet applies its own
// number formats. Labels without a summary row emit a blank line of empty
// fields.
func WriteSheet(w io.Writer, summary []qaqc.SummaryRow, labels []string) error {
	if len(labels) == 0 {
		labels = DefaultSheetLabels
	}

	byLabel := make(map[string]qaqc.SummaryRow, len(summary))
	for _, row := range summary {
		if row.Label != "" {
			byLabel[row.Label] = row
		}
	}

	blank := strings.Repeat("\t", len(sheetColumns)-1)
	for _, label := range labels {
		row, ok := byLabel[label]
		if !ok {
			if _, err := fmt.Fprintln(w, blank); err != nil {
				return err
			}
			continue
		}
		fields := []string{
			strconv.FormatInt(row.N, 10),
			strconv.FormatInt(row.NullsMissing, 10),
			rawStat(row.Mean),
			rawStat(row.Median),
			rawStat(row.Max),
			rawStat(row.Min),
			rawStat(row.SD),
			"", // enums, empty for numeric measurement data
			strconv.FormatInt(row.Participants, 10),
		}
		if _, err := fmt.Fprintln(w, strings.Join(fields, "\t")); err != nil {
			return err
		}
	}
	return nil
}
