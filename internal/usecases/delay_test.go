package usecases

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededDelay(floor, ceiling time.Duration, seed int64) *DelayCalculator {
	d := NewDelayCalculator(true, floor, ceiling)
	d.rng = rand.New(rand.NewSource(seed))
	return d
}

func TestDelayDisabled(t *testing.T) {
	d := NewDelayCalculator(false, 3*time.Second, 30*time.Second)
	assert.Equal(t, time.Duration(0), d.Compute("how is my case going?", "Your team is on it."))
}

func TestDelayRespectsBounds(t *testing.T) {
	floor, ceiling := 3*time.Second, 30*time.Second
	d := seededDelay(floor, ceiling, 1)

	inputs := []struct{ inbound, response string }{
		{"ok", "Got it."},
		{"thanks so much for everything, you have all been wonderful through this", "We're glad to hear it, and we're here whenever you need us."},
		{"why has nobody answered me? what is going on? does anyone even read these?", "Your case manager will follow up with you today."},
	}
	for i := 0; i < 200; i++ {
		in := inputs[i%len(inputs)]
		got := d.Compute(in.inbound, in.response)
		require.GreaterOrEqual(t, got, floor, "inbound %q", in.inbound)
		require.LessOrEqual(t, got, ceiling, "inbound %q", in.inbound)
	}
}

func TestDelayDeterministicWithSameSeed(t *testing.T) {
	a := seededDelay(0, 10*time.Minute, 42)
	b := seededDelay(0, 10*time.Minute, 42)

	inbound := "just wanted to say the new forms arrived today"
	response := "Great, thanks for letting us know!"
	for i := 0; i < 5; i++ {
		require.Equal(t, a.Compute(inbound, response), b.Compute(inbound, response), "call %d", i)
	}
}

func TestDelayGrowsWithLongerMessage(t *testing.T) {
	// Same complexity class and identical rng sequence, so only the reading
	// component differs.
	short := "We will send the forms over to you later this evening."
	long := "We will send the forms over to you later this evening and we appreciate your patience while the office finishes them."
	response := "Thanks!"

	a := seededDelay(0, 10*time.Minute, 7)
	b := seededDelay(0, 10*time.Minute, 7)
	assert.Greater(t, b.Compute(long, response), a.Compute(short, response))
}

func TestDelayClampsToCeilingAndFloor(t *testing.T) {
	long := ""
	for i := 0; i < 120; i++ {
		long += "word "
	}

	d := seededDelay(time.Second, 5*time.Second, 3)
	assert.Equal(t, 5*time.Second, d.Compute(long, "A reply that is quite a bit longer than one hundred characters so the extra thinking component kicks in too."))

	d = seededDelay(20*time.Second, time.Minute, 3)
	assert.Equal(t, 20*time.Second, d.Compute("ok", "Got it."))
}

func TestClassifyComplexity(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want int
	}{
		{"short statement", "ok thanks", complexitySimple},
		{"medium statement", "We dropped the paperwork off at the front desk this morning for you.", complexityNormal},
		{"single question", "Could you resend that last letter to my new address please?", complexityNormal},
		{"two questions", "What happens next? And who do I ask about the letter?", complexityComplex},
		{"two topics", "The doctor asked about my settlement", complexityComplex},
		{"long message", "I have been meaning to write for a while now because a lot has happened since we last spoke and I want to make sure you have the full picture before anything else moves forward on your end, starting with the paperwork.", complexityComplex},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, classifyComplexity(tc.in))
		})
	}
}
