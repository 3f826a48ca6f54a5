// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package documents

import (
	"os"
	"regexp"
	"strings"
	"unicode"

	"github.com/gen2brain/go-fitz"
)

// PDFOutcome is the classifier's decision, driving which processing mode
// the async pipeline selects for a PDF.
type PDFOutcome string

const (
	PDFNativeDigital PDFOutcome = "native-digital"
	PDFScannedImage  PDFOutcome = "scanned-image"
	PDFOCRCandidate  PDFOutcome = "ocr-candidate"
	PDFEmpty         PDFOutcome = "empty"
	PDFUnknown       PDFOutcome = "unknown"
)

// PDFClassification is the reproducible result of ClassifyPDF.
type PDFClassification struct {
	Outcome      PDFOutcome
	TextLength   int
	PageCount    int
	QualityScore float64
	Producer     string
	Creator      string
}

// knownOCRSignatures are producer/creator strings that flag a PDF as
// already having passed through an OCR pipeline.
var knownOCRSignatures = []string{
	"tesseract", "abbyy", "ocrmypdf", "adobe acrobat (ocr)", "readiris",
}

var producerPattern = regexp.MustCompile(`(?i)/Producer\s*\(([^)]*)\)`)
var creatorPattern = regexp.MustCompile(`(?i)/Creator\s*\(([^)]*)\)`)

// ClassifyPDF partitions a PDF into {native-digital, scanned-image,
// ocr-candidate, empty, unknown} using the text-length + page-count +
// quality-score heuristic from spec §4.5. The function is deterministic:
// identical input bytes always yield the same classification.
func ClassifyPDF(path string) (*PDFClassification, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	producer, creator := extractProducerCreator(raw)

	doc, err := fitz.New(path)
	if err != nil {
		return &PDFClassification{Outcome: PDFUnknown, Producer: producer, Creator: creator}, nil
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	var textBuilder strings.Builder
	for i := 0; i < pageCount; i++ {
		if pageText, err := doc.Text(i); err == nil {
			textBuilder.WriteString(pageText)
		}
	}
	text := strings.TrimSpace(textBuilder.String())
	quality := textQualityScore(text)

	c := &PDFClassification{
		TextLength:   len(text),
		PageCount:    pageCount,
		QualityScore: quality,
		Producer:     producer,
		Creator:      creator,
	}

	switch {
	case pageCount == 0:
		c.Outcome = PDFEmpty
	case hasOCRSignature(producer, creator):
		c.Outcome = PDFNativeDigital
	case len(text) == 0:
		c.Outcome = PDFScannedImage
	case len(text) < 200*pageCount && quality < 0.5:
		c.Outcome = PDFOCRCandidate
	case quality >= 0.6:
		c.Outcome = PDFNativeDigital
	default:
		c.Outcome = PDFUnknown
	}
	return c, nil
}

func extractProducerCreator(raw []byte) (producer, creator string) {
	if m := producerPattern.FindSubmatch(raw); m != nil {
		producer = strings.TrimSpace(string(m[1]))
	}
	if m := creatorPattern.FindSubmatch(raw); m != nil {
		creator = strings.TrimSpace(string(m[1]))
	}
	return producer, creator
}

func hasOCRSignature(producer, creator string) bool {
	combined := strings.ToLower(producer + " " + creator)
	for _, sig := range knownOCRSignatures {
		if strings.Contains(combined, sig) {
			return true
		}
	}
	return false
}

// textQualityScore scores extracted text on the ratio of alphabetic
// characters, the presence of isolated single-char "words" (an OCR
// artifact), and runs of garbled non-alphabetic characters, returning a
// value in [0, 1] where higher means more confidently "real" text.
func textQualityScore(text string) float64 {
	if text == "" {
		return 0
	}

	var alpha, total int
	var garbledRun, maxGarbledRun int
	words := strings.Fields(text)

	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsLetter(r) {
			alpha++
			garbledRun = 0
		} else if !unicode.IsDigit(r) && !unicode.IsPunct(r) {
			garbledRun++
			if garbledRun > maxGarbledRun {
				maxGarbledRun = garbledRun
			}
		} else {
			garbledRun = 0
		}
	}
	if total == 0 {
		return 0
	}

	alphaRatio := float64(alpha) / float64(total)

	isolatedSingleChar := 0
	for _, w := range words {
		if len(w) == 1 && unicode.IsLetter(rune(w[0])) {
			isolatedSingleChar++
		}
	}
	var isolatedRatio float64
	if len(words) > 0 {
		isolatedRatio = float64(isolatedSingleChar) / float64(len(words))
	}

	score := alphaRatio - isolatedRatio*0.5
	if maxGarbledRun > 5 {
		score -= 0.3
	}
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}
