package tesseract

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mrzgate/internal/recognition"
	"mrzgate/internal/recognition/contract"
)

func newEngines(t *testing.T) (*Engine, *Engine) {
	t.Helper()
	doc, err := NewDocument(Config{TessdataPrefix: os.Getenv("TESSDATA_PREFIX")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = doc.Close() })

	general, err := NewGeneral(Config{Name: "tesseract-eng"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = general.Close() })
	return doc, general
}

func TestEngineIdentity(t *testing.T) {
	doc, general := newEngines(t)

	assert.Equal(t, DocumentName, doc.Name())
	assert.Equal(t, recognition.KindDocument, doc.Kind())
	assert.Equal(t, "tesseract-eng", general.Name())
	assert.Equal(t, recognition.KindGeneral, general.Kind())
	assert.NotEmpty(t, doc.Version())
}

func TestEngineErrorContract(t *testing.T) {
	doc, general := newEngines(t)

	tests := []contract.ErrorContractTest{
		{
			Name:          "document engine needs a path",
			Engine:        doc,
			Input:         recognition.Input{},
			ExpectedError: recognition.ErrorBadInput,
		},
		{
			Name:          "document engine with a missing file",
			Engine:        doc,
			Input:         recognition.Input{Path: filepath.Join(t.TempDir(), "absent.png")},
			ExpectedError: recognition.ErrorBadInput,
		},
		{
			Name:          "general engine needs an image",
			Engine:        general,
			Input:         recognition.Input{Path: "ignored.png"},
			ExpectedError: recognition.ErrorBadInput,
		},
	}
	for i := range tests {
		tests[i].Run(t)
	}
}

func TestRecognizeHonorsCanceledContext(t *testing.T) {
	doc, _ := newEngines(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := doc.Recognize(ctx, recognition.Input{Path: "passport.png"})
	assert.ErrorIs(t, err, context.Canceled)
}

// TestDocumentEngineReadsSample runs only when a passport zone sample is
// provided through MRZGATE_SAMPLE.
func TestDocumentEngineReadsSample(t *testing.T) {
	sample := os.Getenv("MRZGATE_SAMPLE")
	if sample == "" {
		t.Skip("MRZGATE_SAMPLE not set")
	}
	doc, _ := newEngines(t)

	suite := &contract.ContractSuite{
		EngineName: DocumentName,
		Kind:       recognition.KindDocument,
		Tests: []contract.ContractTest{
			{
				Name:   "reads a TD3 zone",
				Engine: doc,
				Input:  recognition.Input{Path: sample},
				ValidateFunc: func(lines []string) error {
					if !contract.LooksLikeTD3(lines) {
						return assert.AnError
					}
					return nil
				},
			},
		},
	}
	suite.Run(t)
}
