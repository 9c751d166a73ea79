package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avray/openmic/internal/domain"
)

func TestParseTopic(t *testing.T) {
	for _, topic := range domain.Topics() {
		got, err := domain.ParseTopic(string(topic))
		require.NoError(t, err)
		assert.Equal(t, topic, got)
	}

	_, err := domain.ParseTopic("Cooking")
	assert.Error(t, err)

	_, err = domain.ParseTopic(string(domain.TopicAll))
	assert.Error(t, err, "wildcard is not a room topic")
}

func TestParseTopicFilter(t *testing.T) {
	got, err := domain.ParseTopicFilter("")
	require.NoError(t, err)
	assert.Equal(t, domain.TopicAll, got)

	got, err = domain.ParseTopicFilter("All")
	require.NoError(t, err)
	assert.Equal(t, domain.TopicAll, got)

	got, err = domain.ParseTopicFilter("Gaming")
	require.NoError(t, err)
	assert.Equal(t, domain.Topic("Gaming"), got)

	_, err = domain.ParseTopicFilter("Cooking")
	assert.Error(t, err)
}

func TestRoles(t *testing.T) {
	for _, s := range []string{"host", "speaker", "listener"} {
		role, err := domain.ParseRole(s)
		require.NoError(t, err)
		assert.Equal(t, domain.Role(s), role)
	}
	_, err := domain.ParseRole("moderator")
	assert.Error(t, err)

	assert.True(t, domain.RoleHost.CanSpeak())
	assert.True(t, domain.RoleSpeaker.CanSpeak())
	assert.False(t, domain.RoleListener.CanSpeak())
}

func TestNewUserValidation(t *testing.T) {
	_, err := domain.NewUser("", "pw", "Name", "")
	assert.ErrorIs(t, err, domain.ErrUsernameEmpty)

	long := make([]byte, domain.MaxUsernameLen+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err = domain.NewUser(string(long), "pw", "Name", "")
	assert.ErrorIs(t, err, domain.ErrUsernameTooLong)
}

func TestValidationError(t *testing.T) {
	ve := domain.NewValidationError().Add("name", "required")
	assert.False(t, ve.Empty())
	assert.Contains(t, ve.Error(), "name: required")
	assert.True(t, domain.IsValidation(ve))
	assert.False(t, domain.IsValidation(domain.ErrNotFound))
}
