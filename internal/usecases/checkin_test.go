package usecases

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"casepulse/internal/entities"
)

func TestCadenceFor(t *testing.T) {
	cases := []struct {
		days int
		want string
	}{
		{0, entities.CadenceDaily},
		{7, entities.CadenceDaily},
		{8, entities.CadenceEveryFew},
		{30, entities.CadenceEveryFew},
		{31, entities.CadenceWeekly},
		{90, entities.CadenceWeekly},
		{91, entities.CadenceMonthly},
		{400, entities.CadenceMonthly},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CadenceFor(tc.days), "days=%d", tc.days)
	}
}

func TestNextDue(t *testing.T) {
	from := time.Date(2025, 4, 16, 9, 30, 0, 0, time.UTC)

	assert.Equal(t, from.AddDate(0, 0, 1), NextDue(entities.CadenceDaily, from))
	assert.Equal(t, from.AddDate(0, 0, 3), NextDue(entities.CadenceEveryFew, from))
	assert.Equal(t, from.AddDate(0, 0, 7), NextDue(entities.CadenceWeekly, from))
	assert.Equal(t, from.AddDate(0, 0, 30), NextDue(entities.CadenceMonthly, from))
	assert.Equal(t, from.AddDate(0, 0, 30), NextDue("bogus", from), "unknown cadence stays monthly")
}

func TestCheckInTone(t *testing.T) {
	assert.Equal(t, "extra empathetic and supportive", CheckInTone(entities.SentimentNegative))
	assert.Equal(t, "upbeat and friendly", CheckInTone(entities.SentimentPositive))
	assert.Equal(t, "warm and professional", CheckInTone(entities.SentimentNeutral))
}

func TestFirstName(t *testing.T) {
	assert.Equal(t, "Dana", firstName("Dana Brooks"))
	assert.Equal(t, "Cher", firstName("Cher"))
	assert.Equal(t, "", firstName(""))
	assert.Equal(t, "Mary", firstName("Mary Ann Lee"))
}
