package tools

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/kavehmz/agentic-office-manager/errors"
)

// RandomStringTool generates a pseudo-random string from a caller-supplied
// seed. It is registered with needsApproval=true and serves as the reference
// sensitive action.
type RandomStringTool struct{}

func (t *RandomStringTool) Name() string { return "random_string" }
func (t *RandomStringTool) Description() string {
	return "Generates a random string. Call this whenever the user asks for a random string, passing a random number as the seed. Args: random_number (integer)."
}

func (t *RandomStringTool) Execute(_ context.Context, args map[string]interface{}, params Params) (string, error) {
	seed, err := intArg(args, "random_number")
	if err != nil {
		return "", err
	}

	// The trusted "age" parameter scales the output length. It comes from
	// process configuration; the model cannot supply or override it.
	length := 8
	if age, err := intArg(map[string]interface{}{"age": params["age"]}, "age"); err == nil && age > 0 {
		length = 8 * int(age)
	}

	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	rng := rand.New(rand.NewSource(seed))
	var b strings.Builder
	for i := 0; i < length; i++ {
		b.WriteByte(charset[rng.Intn(len(charset))])
	}
	return b.String(), nil
}

// ToUpperTool converts text to upper case.
type ToUpperTool struct{}

func (t *ToUpperTool) Name() string { return "to_upper" }
func (t *ToUpperTool) Description() string {
	return "Converts the input text to all upper case. Args: input_text (string)."
}

func (t *ToUpperTool) Execute(_ context.Context, args map[string]interface{}, _ Params) (string, error) {
	text, ok := args["input_text"].(string)
	if !ok {
		return "", errors.New("missing or invalid 'input_text' argument")
	}
	return strings.ToUpper(text), nil
}

// GetDateTool returns the current date.
type GetDateTool struct{}

func (t *GetDateTool) Name() string { return "get_date" }
func (t *GetDateTool) Description() string {
	return "Returns the current date as a string in the format YYYY-MM-DD. Takes no arguments."
}

func (t *GetDateTool) Execute(_ context.Context, _ map[string]interface{}, _ Params) (string, error) {
	return time.Now().Format("2006-01-02"), nil
}

// intArg extracts an integer argument, accepting the float64 values JSON
// decoding produces.
func intArg(args map[string]interface{}, key string) (int64, error) {
	switch v := args[key].(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	default:
		return 0, errors.New("missing or invalid '%s' argument", key)
	}
}
