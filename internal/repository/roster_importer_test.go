package repository

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casepulse/internal/entities"
)

func TestParseRoster(t *testing.T) {
	csv := strings.Join([]string{
		"Name,Phone,Email,Case Manager,Case Type,Gender,Accident Date,Signup Date,Preferred Channel",
		"Dana Brooks,+1 (555) 010-0101,dana@example.com,Alex Reed,auto accident,F,2025-01-15,2025-01-20,whatsapp",
		"Sam Ortiz,5550100102,,Alex Reed,slip and fall,M,2025-02-01,,",
	}, "\n")

	clients, problems, err := ParseRoster(strings.NewReader(csv))
	require.NoError(t, err)
	require.Empty(t, problems)
	require.Len(t, clients, 2)

	dana := clients[0]
	assert.Equal(t, "Dana Brooks", dana.Name)
	assert.Equal(t, "+15550100101", dana.Phone, "phone is normalized")
	assert.Equal(t, "dana@example.com", dana.Email)
	assert.Equal(t, "Alex Reed", dana.CaseManager)
	assert.Equal(t, "auto accident", dana.CaseType)
	assert.Equal(t, "f", dana.Gender)
	assert.Equal(t, entities.ChannelWhatsApp, dana.PreferredChannel)
	assert.Equal(t, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), dana.AccidentDate)
	assert.Equal(t, time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC), dana.SignupDate)
	assert.Equal(t, entities.RiskMedium, dana.RiskLevel)
	assert.Equal(t, entities.SentimentNeutral, dana.LastSentiment)
	assert.Equal(t, entities.ClientActive, dana.Status)

	sam := clients[1]
	assert.Equal(t, "5550100102", sam.Phone)
	assert.Equal(t, entities.ChannelSMS, sam.PreferredChannel, "blank channel defaults to SMS")
	today := time.Now().UTC()
	assert.Equal(t, time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC), sam.SignupDate,
		"blank signup date defaults to today")
}

func TestParseRosterHeaderOrderDoesNotMatter(t *testing.T) {
	csv := strings.Join([]string{
		"phone,gender,accident_date,case_manager,name,ignored_extra",
		"+15550100101,f,2025-01-15,Alex Reed,Dana Brooks,whatever",
	}, "\n")

	clients, problems, err := ParseRoster(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Empty(t, problems)
	require.Len(t, clients, 1)
	assert.Equal(t, "Dana Brooks", clients[0].Name)
	assert.Equal(t, "Alex Reed", clients[0].CaseManager)
}

func TestParseRosterMissingColumn(t *testing.T) {
	csv := strings.Join([]string{
		"name,phone,gender,accident_date", // no case_manager
		"Dana Brooks,+15550100101,f,2025-01-15",
	}, "\n")

	_, _, err := ParseRoster(strings.NewReader(csv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "case_manager")
}

func TestParseRosterNoDataRows(t *testing.T) {
	_, _, err := ParseRoster(strings.NewReader("name,phone,case_manager,gender,accident_date\n"))
	require.Error(t, err)

	_, _, err = ParseRoster(strings.NewReader(""))
	require.Error(t, err)
}

func TestParseRosterBadRowsAreReportedNotFatal(t *testing.T) {
	csv := strings.Join([]string{
		"name,phone,case_manager,gender,accident_date,signup_date",
		",+15550100101,Alex Reed,f,2025-01-15,",
		"Sam Ortiz,,Alex Reed,m,2025-01-15,",
		"Lee Park,+15550100103,,m,2025-01-15,",
		"Kim Cho,+15550100104,Alex Reed,,2025-01-15,",
		"Ana Ruiz,+15550100105,Alex Reed,f,01/15/2025,",
		"Bo Chen,+15550100106,Alex Reed,m,2025-01-15,Jan 20",
		"Dana Brooks,+15550100107,Alex Reed,f,2025-01-15,2025-01-20",
	}, "\n")

	clients, problems, err := ParseRoster(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, clients, 1, "only the clean row imports")
	assert.Equal(t, "Dana Brooks", clients[0].Name)

	require.Len(t, problems, 6)
	assert.Contains(t, problems[0], "row 2: missing name")
	assert.Contains(t, problems[1], "row 3: missing phone")
	assert.Contains(t, problems[2], "row 4: missing case_manager")
	assert.Contains(t, problems[3], "row 5: missing gender")
	assert.Contains(t, problems[4], "row 6: bad accident_date")
	assert.Contains(t, problems[5], "row 7: bad signup_date")
}

func TestParseRosterShortRows(t *testing.T) {
	csv := strings.Join([]string{
		"name,phone,case_manager,gender,accident_date,signup_date,preferred_channel",
		"Dana Brooks,+15550100101,Alex Reed,f,2025-01-15", // trailing columns absent
	}, "\n")

	clients, problems, err := ParseRoster(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Empty(t, problems)
	require.Len(t, clients, 1)
	assert.Equal(t, entities.ChannelSMS, clients[0].PreferredChannel)
}
