package girder

import (
	"github.com/goccy/go-json"
)

// Codec hooks shared by the req client and the hand-decoded responses.
var (
	jsonMarshal   = json.Marshal
	jsonUnmarshal = json.Unmarshal
)
