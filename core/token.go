package core

import (
	. "github.com/stevegt/goadapt"
	"github.com/tiktoken-go/tokenizer"
)

var Tokenizer tokenizer.Codec

// InitTokenizer initializes the tokenizer.
func InitTokenizer() (err error) {
	Tokenizer, err = tokenizer.Get(tokenizer.Cl100kBase)
	Ck(err)
	return
}

// TokenCount returns the number of tokens in text.
func TokenCount(text string) (count int, err error) {
	defer Return(&err)
	if Tokenizer == nil {
		err = InitTokenizer()
		Ck(err)
	}
	_, tokens, err := Tokenizer.Encode(text)
	Ck(err)
	count = len(tokens)
	return
}
