package directory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubc/wiki-cwl-link/config"
)

func testKeys() config.DirectoryConfig {
	return config.DirectoryConfig{
		LoginNameAttr:   "cwlLoginName",
		PersonIDAttr:    "ubcEduPersonPUID",
		DisplayNameAttr: "displayName",
		AffiliationAttr: "eduPersonAffiliation",
	}
}

func TestNewExtractor_RequiresLoginKey(t *testing.T) {
	_, err := NewExtractor(config.DirectoryConfig{})
	assert.Error(t, err)

	e, err := NewExtractor(testKeys())
	require.NoError(t, err)
	assert.NotNil(t, e)
}

func TestExtractor_Extract_FullBag(t *testing.T) {
	e, err := NewExtractor(testKeys())
	require.NoError(t, err)

	got, err := e.Extract(Attributes{
		"cwlLoginName":         String("jsmith99"),
		"ubcEduPersonPUID":     String("PUID-42"),
		"displayName":          String("Jane Smith"),
		"eduPersonAffiliation": List("student", "staff"),
	})
	require.NoError(t, err)

	assert.Equal(t, "jsmith99", got.LoginName)
	assert.Equal(t, "PUID-42", got.PersonID)
	assert.Equal(t, "Jane Smith", got.DisplayName)
	assert.True(t, got.Affiliations.Contains("student"))
	assert.True(t, got.Affiliations.Contains("staff"))
	assert.Len(t, got.Affiliations, 2)
}

func TestExtractor_Extract_StringFieldFromList(t *testing.T) {
	e, err := NewExtractor(testKeys())
	require.NoError(t, err)

	// SAML responses routinely wrap single values in one-element lists.
	got, err := e.Extract(Attributes{
		"cwlLoginName": List("jsmith99", "ignored-second"),
	})
	require.NoError(t, err)
	assert.Equal(t, "jsmith99", got.LoginName)
}

func TestExtractor_Extract_MissingRequiredLogin(t *testing.T) {
	e, err := NewExtractor(testKeys())
	require.NoError(t, err)

	tests := []struct {
		name  string
		attrs Attributes
	}{
		{name: "absent", attrs: Attributes{}},
		{name: "empty string", attrs: Attributes{"cwlLoginName": String("")}},
		{name: "empty list", attrs: Attributes{"cwlLoginName": List()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Extract(tt.attrs)
			var missing *MissingAttributeError
			require.ErrorAs(t, err, &missing)
			assert.Equal(t, "cwlLoginName", missing.Key)
		})
	}
}

func TestExtractor_Extract_OptionalFieldsAbsent(t *testing.T) {
	e, err := NewExtractor(testKeys())
	require.NoError(t, err)

	got, err := e.Extract(Attributes{
		"cwlLoginName": String("jsmith99"),
	})
	require.NoError(t, err)

	assert.Empty(t, got.PersonID)
	assert.Empty(t, got.DisplayName)
	assert.True(t, got.Affiliations.IsEmpty())
}

func TestExtractor_Extract_ScalarWhereListExpected(t *testing.T) {
	e, err := NewExtractor(testKeys())
	require.NoError(t, err)

	_, err = e.Extract(Attributes{
		"cwlLoginName":         String("jsmith99"),
		"eduPersonAffiliation": String("student"),
	})

	var mismatch *TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "eduPersonAffiliation", mismatch.Key)
	assert.Equal(t, "list", mismatch.Want)
}

func TestExtractor_Extract_ZeroValueAttr(t *testing.T) {
	e, err := NewExtractor(testKeys())
	require.NoError(t, err)

	// A zero AttrValue carries no shape at all; optional fields treat it as
	// absent rather than failing.
	got, err := e.Extract(Attributes{
		"cwlLoginName": String("jsmith99"),
		"displayName":  AttrValue{},
	})
	require.NoError(t, err)
	assert.Empty(t, got.DisplayName)
}
