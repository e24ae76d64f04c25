package tools

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kavehmz/agentic-office-manager/config"
	"github.com/kavehmz/agentic-office-manager/errors"
)

type paramEchoTool struct {
	seenParams Params
}

func (p *paramEchoTool) Name() string        { return "param_echo" }
func (p *paramEchoTool) Description() string { return "records the trusted params it receives" }

func (p *paramEchoTool) Execute(_ context.Context, _ map[string]interface{}, params Params) (string, error) {
	p.seenParams = params
	return "ok", nil
}

func testRegistry(cfg *config.Config) *Registry {
	if cfg == nil {
		cfg = &config.Config{}
	}
	return NewRegistry(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	r := testRegistry(nil)

	for _, name := range []string{"to_upper", "To_Upper", "TO_UPPER"} {
		tool, err := r.Lookup(name)
		require.NoError(t, err, name)
		assert.Equal(t, "to_upper", tool.Name())
	}

	_, err := r.Lookup("no_such_tool")
	assert.True(t, errors.Is(err, ErrUnknownTool))
}

func TestRequiresApproval(t *testing.T) {
	r := testRegistry(nil)

	assert.True(t, r.RequiresApproval("random_string"))
	assert.True(t, r.RequiresApproval("RANDOM_STRING"))
	assert.False(t, r.RequiresApproval("to_upper"))
	assert.False(t, r.RequiresApproval("get_date"))

	// Unknown names never gate a batch; they fail at lookup instead.
	assert.False(t, r.RequiresApproval("no_such_tool"))
}

func TestRequiresApprovalOverridePatterns(t *testing.T) {
	r := testRegistry(&config.Config{
		RequireApproval: []string{"get_*", "mcp:**"},
	})

	assert.True(t, r.RequiresApproval("get_date"))
	assert.True(t, r.RequiresApproval("mcp:filesystem:write_file"))
	assert.False(t, r.RequiresApproval("to_upper"))
}

func TestExecuteInjectsTrustedParams(t *testing.T) {
	echo := &paramEchoTool{}
	r := testRegistry(&config.Config{
		TrustedParams: map[string]interface{}{"age": 3, "region": "eu"},
	})
	r.Register(echo, false)

	out, err := r.Execute(context.Background(), "param_echo", map[string]interface{}{
		"age": 99, // model-supplied argument must not replace the trusted value
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, echo.seenParams["age"])
	assert.Equal(t, "eu", echo.seenParams["region"])
}

func TestExecuteUnknownTool(t *testing.T) {
	r := testRegistry(nil)
	_, err := r.Execute(context.Background(), "no_such_tool", nil)
	assert.True(t, errors.Is(err, ErrUnknownTool))
}

func TestActiveTools(t *testing.T) {
	r := testRegistry(nil)

	all, err := r.ActiveTools(&config.Toolset{Name: "default", Tools: []string{"*"}})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	subset, err := r.ActiveTools(&config.Toolset{Name: "text", Tools: []string{"to_upper", "get_*"}})
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, tool := range subset {
		names[tool.Name()] = true
	}
	assert.Equal(t, map[string]bool{"to_upper": true, "get_date": true}, names)

	// A literal entry that matches nothing is a configuration error.
	_, err = r.ActiveTools(&config.Toolset{Name: "bad", Tools: []string{"no_such_tool"}})
	assert.Error(t, err)

	// A pattern that matches nothing is allowed.
	none, err := r.ActiveTools(&config.Toolset{Name: "empty", Tools: []string{"mcp:*"}})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestActiveToolsDeduplicates(t *testing.T) {
	r := testRegistry(nil)
	active, err := r.ActiveTools(&config.Toolset{Name: "dup", Tools: []string{"to_upper", "*"}})
	require.NoError(t, err)
	assert.Len(t, active, 3)
}

func TestRandomStringDeterministicAndScaled(t *testing.T) {
	tool := &RandomStringTool{}
	args := map[string]interface{}{"random_number": float64(42)}

	first, err := tool.Execute(context.Background(), args, Params{"age": 2})
	require.NoError(t, err)
	second, err := tool.Execute(context.Background(), args, Params{"age": 2})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 16)

	other, err := tool.Execute(context.Background(), map[string]interface{}{"random_number": float64(43)}, Params{"age": 2})
	require.NoError(t, err)
	assert.NotEqual(t, first, other)

	// Without a usable age the length falls back to 8.
	short, err := tool.Execute(context.Background(), args, Params{})
	require.NoError(t, err)
	assert.Len(t, short, 8)

	_, err = tool.Execute(context.Background(), map[string]interface{}{}, Params{"age": 2})
	assert.Error(t, err)
}

func TestToUpper(t *testing.T) {
	tool := &ToUpperTool{}

	out, err := tool.Execute(context.Background(), map[string]interface{}{"input_text": "foo bar"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "FOO BAR", out)

	_, err = tool.Execute(context.Background(), map[string]interface{}{"input_text": 7}, nil)
	assert.Error(t, err)
}

func TestGetDateFormat(t *testing.T) {
	tool := &GetDateTool{}
	out, err := tool.Execute(context.Background(), nil, nil)
	require.NoError(t, err)

	parsed, err := time.Parse("2006-01-02", out)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), parsed, 48*time.Hour)
}
