package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"http valid", Config{Kind: KindHTTP, URL: "http://x"}, false},
		{"http missing url", Config{Kind: KindHTTP}, true},
		{"subprocess valid", Config{Kind: KindSubprocess, Command: "./aut"}, false},
		{"subprocess missing command", Config{Kind: KindSubprocess}, true},
		{"assistant valid", Config{Kind: KindOpenAIAssistant, AssistantID: "asst_1"}, false},
		{"assistant missing id", Config{Kind: KindOpenAIAssistant}, true},
		{"custom valid", Config{Kind: KindCustom, Module: "./plugin"}, false},
		{"custom missing module", Config{Kind: KindCustom}, true},
		{"unknown kind", Config{Kind: "bogus"}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
