package chatclient

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(kind, data string) string {
	return "event: " + kind + "\ndata: " + data + "\n\n"
}

// navigationTurn is a full tool-using turn as it appears on the wire.
var navigationTurn = strings.Join([]string{
	record(KindToolStart, `{"tool":"get_navigation","label":"正在规划路线..."}`),
	record(KindToolData, `{"navigationData":{"destination":{"name":"外滩","inputName":"The Bund","address":"中山东一路","location":"121.490317,31.236342"},"walking":{"duration":45,"distance":3600}}}`),
	record(KindText, "步行约45分钟"),
	record(KindText, "可以到达外滩。"),
	record(KindDone, "{}"),
}, "")

func TestReduceTextOnlyTurn(t *testing.T) {
	r := NewReducer()
	r.Feed([]byte(record(KindText, "你好")))
	r.Feed([]byte(record(KindText, "！")))
	r.Feed([]byte(record(KindDone, "{}")))

	conv := r.Conversation()
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, "你好！", conv.Messages[0].Content, "text events must accumulate")
	assert.False(t, conv.Thinking, "indicators must clear on done")
	assert.Empty(t, conv.ToolLabel)
	assert.True(t, r.Done())
}

func TestReduceNavigationTurn(t *testing.T) {
	r := NewReducer()
	r.Feed([]byte(navigationTurn))

	conv := r.Conversation()
	require.Len(t, conv.Messages, 1)
	m := conv.Messages[0]
	require.NotNil(t, m.Navigation, "navigation card missing")
	assert.Equal(t, "外滩", m.Navigation.Destination.Name)
	require.NotNil(t, m.Navigation.Walking)
	assert.Equal(t, 45, m.Navigation.Walking.Duration)
	assert.Equal(t, "步行约45分钟可以到达外滩。", m.Content)
}

func TestReduceToolStartShowsLabel(t *testing.T) {
	r := NewReducer()
	r.Feed([]byte(record(KindToolStart, `{"tool":"get_navigation","label":"正在规划路线..."}`)))

	conv := r.Conversation()
	assert.Equal(t, "正在规划路线...", conv.ToolLabel)
	assert.False(t, conv.Thinking, "tool_start clears thinking")
	assert.Empty(t, conv.Messages, "tool_start must not create the message")

	r.Feed([]byte(record(KindToolData, `{"navigationData":{"destination":{"name":"外滩"}}}`)))
	assert.Empty(t, r.Conversation().ToolLabel, "tool_data clears the label")
}

func TestReduceReadingClearedByStream(t *testing.T) {
	r := NewReducer()
	r.SetReading(true)
	require.True(t, r.Conversation().Reading)

	r.Feed([]byte(record(KindText, "收到图片。")))
	assert.False(t, r.Conversation().Reading, "first text clears reading")

	r = NewReducer()
	r.SetReading(true)
	r.Feed([]byte(record(KindToolStart, `{"tool":"get_navigation"}`)))
	assert.False(t, r.Conversation().Reading, "tool_start clears reading")
}

func TestReduceTextClearKeepsStructuredData(t *testing.T) {
	r := NewReducer()
	r.Feed([]byte(record(KindText, "让我查一下。")))
	r.Feed([]byte(record(KindToolData, `{"navigationData":{"destination":{"name":"外滩"}}}`)))
	r.Feed([]byte(record(KindTextClear, "{}")))

	m := r.Conversation().Messages[0]
	assert.Empty(t, m.Content, "text_clear wipes provisional text")
	assert.NotNil(t, m.Navigation, "text_clear must keep the navigation card")
}

func TestReduceChunkSplitEquivalence(t *testing.T) {
	whole := NewReducer()
	whole.Feed([]byte(navigationTurn))
	want := whole.Conversation()

	// The same byte stream split at every chunk size must fold to the
	// same state.
	for size := 1; size <= 7; size++ {
		r := NewReducer()
		data := []byte(navigationTurn)
		for len(data) > 0 {
			n := size
			if n > len(data) {
				n = len(data)
			}
			r.Feed(data[:n])
			data = data[n:]
		}
		got := r.Conversation()
		require.Len(t, got.Messages, len(want.Messages), "chunk=%d", size)
		assert.Equal(t, want.Messages[0].Content, got.Messages[0].Content, "chunk=%d", size)
		assert.Equal(t, want.Messages[0].Navigation == nil, got.Messages[0].Navigation == nil, "chunk=%d", size)
	}
}

func TestReduceDoneIdempotent(t *testing.T) {
	r := NewReducer()
	r.Feed([]byte(record(KindText, "好的。")))
	r.Feed([]byte(record(KindDone, "{}")))
	before := r.Conversation()

	r.Apply(Event{Kind: KindDone, Data: "{}"})

	assert.Equal(t, before, r.Conversation(), "replaying done changed the folded state")
}

func TestReduceErrorReplacesContent(t *testing.T) {
	r := NewReducer()
	r.Feed([]byte(record(KindText, "partial answ")))
	r.Feed([]byte(record(KindError, `{"message":"抱歉，请稍后再试。"}`)))

	conv := r.Conversation()
	m := conv.Messages[0]
	assert.Equal(t, "抱歉，请稍后再试。", m.Content, "error must replace text")
	assert.True(t, m.IsError)
	assert.False(t, conv.Thinking, "error clears indicators")
	assert.Empty(t, conv.ToolLabel)
}

func TestReducePlacesEnrichment(t *testing.T) {
	r := NewReducer()
	r.Feed([]byte(record(KindToolData,
		`{"placesData":[{"name":"东方明珠","type":"attraction"},{"name":"南京路步行街","type":"attraction"},{"name":"豫园","type":"attraction"}]}`)))
	r.Feed([]byte(record(KindDone, "{}")))

	// Enrichment may land after done: exact match, substring match,
	// positional fallback all in one update.
	r.Feed([]byte(record(KindPlacesUpdate,
		`[{"name":"东方明珠","englishName":"Oriental Pearl Tower","description":"Iconic TV tower."},{"name":"南京路","englishName":"Nanjing Road","description":"Shopping street."},{"name":"某景点","englishName":"Yu Garden","description":"Classical garden."}]`)))

	places := r.Conversation().Messages[0].Places
	assert.Equal(t, "Oriental Pearl Tower", places[0].EnglishName, "exact match")
	assert.Equal(t, "Nanjing Road", places[1].EnglishName, "substring match")
	assert.Equal(t, "Yu Garden", places[2].EnglishName, "positional fallback")
}

func TestReducePartialEnrichmentLeavesRestUnchanged(t *testing.T) {
	r := NewReducer()
	r.Feed([]byte(record(KindToolData,
		`{"placesData":[{"name":"外滩"},{"name":"豫园"}]}`)))
	r.Feed([]byte(record(KindPlacesUpdate,
		`[{"name":"外滩","englishName":"The Bund","description":"Waterfront."}]`)))

	places := r.Conversation().Messages[0].Places
	assert.Equal(t, "The Bund", places[0].EnglishName)
	assert.Empty(t, places[1].EnglishName, "unmatched place must stay untouched")
	assert.Empty(t, places[1].Description)
}

func TestReduceFailSynthesizesFallback(t *testing.T) {
	r := NewReducer()
	r.Fail()

	conv := r.Conversation()
	require.Len(t, conv.Messages, 1, "want the fallback message")
	assert.Equal(t, FallbackMessage, conv.Messages[0].Content)
	assert.True(t, conv.Messages[0].IsError)
	assert.False(t, conv.Thinking, "indicators must clear")
}

func TestReduceFailAfterSuccessIsNoop(t *testing.T) {
	r := NewReducer()
	r.Feed([]byte(record(KindText, "好的。")))
	r.Feed([]byte(record(KindDone, "{}")))
	r.Fail()

	conv := r.Conversation()
	require.Len(t, conv.Messages, 1, "deferred Fail after a clean turn must not add a message")
	assert.Equal(t, "好的。", conv.Messages[0].Content)
}

func TestConsumeReadsStream(t *testing.T) {
	r := NewReducer()
	require.NoError(t, r.Consume(bytes.NewReader([]byte(navigationTurn))))
	assert.True(t, r.Done())
}

func TestReduceDropsUnknownRecords(t *testing.T) {
	r := NewReducer()
	r.Feed([]byte(": keepalive comment\n\n"))
	r.Feed([]byte(record(KindText, "ok")))

	conv := r.Conversation()
	require.Len(t, conv.Messages, 1, "unknown records must be silently dropped")
	assert.Equal(t, "ok", conv.Messages[0].Content)
}
