package scanner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ghmbegerez/converge/internal/types"
)

func TestTimeoutForKnownCategories(t *testing.T) {
	require.Equal(t, TimeoutSAST, TimeoutFor(types.CategorySAST))
	require.Equal(t, TimeoutSCA, TimeoutFor(types.CategorySCA))
	require.Equal(t, TimeoutSecrets, TimeoutFor(types.CategorySecrets))
}

func TestTimeoutForUnknownCategoryFallsBackToSAST(t *testing.T) {
	require.Equal(t, TimeoutSAST, TimeoutFor(types.SecurityCategory("bogus")))
}

func TestCommandScannerIsAvailableFalseWhenEmptyArgv(t *testing.T) {
	s := NewCommandScanner("empty", types.CategorySAST, nil)
	require.False(t, s.IsAvailable(context.Background()))
}

func TestCommandScannerIsAvailableFalseWhenBinaryMissing(t *testing.T) {
	s := NewCommandScanner("missing", types.CategorySAST, []string{"converge-nonexistent-binary-xyz"})
	require.False(t, s.IsAvailable(context.Background()))
}

func TestCommandScannerScanParsesGenericFindings(t *testing.T) {
	script := `echo '[{"rule":"r1","file":"a.go","line":10,"severity":"HIGH","evidence":"ev","confidence":0.9}]'`
	s := NewCommandScanner("sast", types.CategorySAST, []string{"sh", "-c", script})
	findings, err := s.Scan(context.Background(), "./...", Options{IntentID: "intent-1", TenantID: "t1"})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	require.Equal(t, "a.go", findings[0].File)
	require.Equal(t, types.SeverityHigh, findings[0].Severity)
	require.Equal(t, "intent-1", findings[0].IntentID)
}

func TestCommandScannerScanEmptyOutputYieldsNoFindings(t *testing.T) {
	s := NewCommandScanner("sast", types.CategorySAST, []string{"sh", "-c", "true"})
	findings, err := s.Scan(context.Background(), "./...", Options{})
	require.NoError(t, err)
	require.Empty(t, findings)
}

func TestCommandScannerScanNoArgvErrors(t *testing.T) {
	s := NewCommandScanner("empty", types.CategorySAST, nil)
	_, err := s.Scan(context.Background(), "./...", Options{})
	require.Error(t, err)
}

func TestCommandScannerScanNonZeroExitErrors(t *testing.T) {
	s := NewCommandScanner("fail", types.CategorySAST, []string{"sh", "-c", "exit 1"})
	_, err := s.Scan(context.Background(), "./...", Options{})
	require.Error(t, err)
}

func TestGitleaksScannerDefaultsBinaryName(t *testing.T) {
	s := NewGitleaksScanner("")
	require.Equal(t, "gitleaks", s.binary)
	require.Equal(t, "gitleaks", s.Name())
	require.Equal(t, types.CategorySecrets, s.Category())
}

func TestGitleaksScannerIsAvailableFalseWhenMissing(t *testing.T) {
	s := NewGitleaksScanner("converge-nonexistent-gitleaks-xyz")
	require.False(t, s.IsAvailable(context.Background()))
}

func TestTruncateEvidenceKeepsRuleAndPrefix(t *testing.T) {
	require.Equal(t, "AWS_KEY:12345678...", truncateEvidence("AWS_KEY", "1234567890abcdef"))
	require.Equal(t, "SHORT:ab...", truncateEvidence("SHORT", "ab"))
}
