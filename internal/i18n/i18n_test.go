package i18n

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedCatalogs(t *testing.T) {
	require.NoError(t, Initialize())

	assert.Equal(t, []string{"af", "en"}, GetSupportedLanguages())
	assert.Equal(t, "Payment not yet received", T("en", KeyPaymentNotYetReceived))
	assert.Equal(t, "Betaling nog nie ontvang nie", T("af", KeyPaymentNotYetReceived))
	assert.Equal(t, "Invalid input", T("en", KeyValidationInvalid, "input"))
}

func TestFallbacks(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/en.json": {Data: []byte(`{"greeting":"Hello %s","only.en":"English only"}`)},
		"locales/af.json": {Data: []byte(`{"greeting":"Hallo %s"}`)},
	}
	i := &I18n{translations: map[string]map[string]string{}, defaultLang: "en"}
	require.NoError(t, i.LoadTranslations(fsys, "locales"))

	assert.Equal(t, "Hallo Pete", i.T("af", "greeting", "Pete"))
	assert.Equal(t, "English only", i.T("af", "only.en"))
	assert.Equal(t, "English only", i.T("fr", "only.en"))
	assert.Equal(t, "missing.key", i.T("en", "missing.key"))
}

func TestLoadTranslationsRejectsBadJSON(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/en.json": {Data: []byte(`{not json`)},
	}
	i := &I18n{translations: map[string]map[string]string{}, defaultLang: "en"}
	assert.Error(t, i.LoadTranslations(fsys, "locales"))
}
