package tokenizer

import (
	"github.com/pkoukk/tiktoken-go"
)

// Counter turns text into a token count. It is used only for context
// budgeting; nothing else about the text is interpreted.
type Counter interface {
	Count(text string) int
}

// encodingName is the BPE encoding shared by the GPT-4 model family.
const encodingName = "cl100k_base"

// bpeCounter counts tokens with a real tiktoken encoding.
type bpeCounter struct {
	enc *tiktoken.Tiktoken
}

func (c *bpeCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// Estimator approximates token counts as bytes/4. Used when the BPE
// encoding cannot be loaded (e.g. offline with no cached vocabulary);
// budgeting stays conservative enough for context assembly.
type Estimator struct{}

func (Estimator) Count(text string) int {
	return len(text) / 4
}

// New returns the best available Counter: a tiktoken encoding when it can
// be loaded, the byte estimator otherwise. Loading failure is not an
// error condition for callers.
func New() Counter {
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return Estimator{}
	}
	return &bpeCounter{enc: enc}
}
