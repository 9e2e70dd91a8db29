package notify

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomail "gopkg.in/mail.v2"

	"github.com/shanehull/wsbscraper/internal/config"
	"github.com/shanehull/wsbscraper/internal/logger"
	"github.com/shanehull/wsbscraper/internal/types"
)

var (
	runAt    = time.Date(2024, 1, 30, 12, 0, 0, 0, time.UTC)
	postTime = time.Date(2024, 1, 29, 9, 30, 0, 0, time.UTC)
)

func tickerReport() *types.RunReport {
	return &types.RunReport{
		RunAt:        runAt,
		Subreddit:    "wallstreetbets",
		Granularity:  types.KeyTicker,
		PostsFetched: 2,
		Scored:       3,
		Results: []types.Result{
			{Ticker: "GME", Mentions: 2, AvgSentiment: 5.25},
			{Ticker: "AMC", Mentions: 1, AvgSentiment: 7.0},
		},
	}
}

func TestFormatResult(t *testing.T) {
	tests := []struct {
		name        string
		result      types.Result
		granularity types.KeyGranularity
		want        string
	}{
		{
			name:        "ticker only",
			result:      types.Result{Ticker: "GME", Mentions: 2, AvgSentiment: 5.25},
			granularity: types.KeyTicker,
			want:        "GME: 2 mentions, Sentiment: 5.25/10",
		},
		{
			name:        "per post",
			result:      types.Result{Ticker: "AMC", Mentions: 1, AvgSentiment: 7.456, PostDate: &postTime},
			granularity: types.KeyTickerTimestamp,
			want:        "AMC: 1 mentions, Sentiment: 7.46/10, Post Date: 2024-01-29T09:30:00Z",
		},
		{
			name:        "per day",
			result:      types.Result{Ticker: "TSLA", Mentions: 3, AvgSentiment: 4, PostDate: &postTime},
			granularity: types.KeyTickerDay,
			want:        "TSLA: 3 mentions, Sentiment: 4.00/10, Post Date: 2024-01-29",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatResult(tt.result, tt.granularity, 10))
		})
	}
}

func TestRenderPlainText(t *testing.T) {
	msg, err := NewHTMLEmailRenderer("").Render(NewNotificationData(tickerReport(), 10, 0))
	require.NoError(t, err)

	assert.Equal(t, DefaultSubject, msg.Subject)
	assert.Equal(t,
		"Top stock tickers discussed on r/wallstreetbets:\n\n"+
			"GME: 2 mentions, Sentiment: 5.25/10\n"+
			"AMC: 1 mentions, Sentiment: 7.00/10\n",
		msg.Text)
	assert.Contains(t, msg.HTML, "r/wallstreetbets")
	assert.Contains(t, msg.HTML, "5.25/10")
	assert.NotContains(t, msg.HTML, "Post date")
}

func TestRenderTopN(t *testing.T) {
	msg, err := NewHTMLEmailRenderer("Tickers").Render(NewNotificationData(tickerReport(), 10, 1))
	require.NoError(t, err)

	assert.Equal(t, "Tickers", msg.Subject)
	assert.Contains(t, msg.Text, "GME")
	assert.NotContains(t, msg.Text, "AMC")
	assert.Contains(t, msg.Text, "(1 more tickers not shown)")
	assert.Contains(t, msg.HTML, "1 of 2 tickers shown")
}

func TestRenderPerPostHTML(t *testing.T) {
	report := tickerReport()
	report.Granularity = types.KeyTickerTimestamp
	report.Results[0].PostDate = &postTime

	msg, err := NewHTMLEmailRenderer("").Render(NewNotificationData(report, 10, 0))
	require.NoError(t, err)
	assert.Contains(t, msg.HTML, "Post date")
	assert.Contains(t, msg.HTML, "2024-01-29T09:30:00Z")
}

func TestRenderEmpty(t *testing.T) {
	report := tickerReport()
	report.Results = nil

	msg, err := NewHTMLEmailRenderer("").Render(NewNotificationData(report, 10, 0))
	require.NoError(t, err)
	assert.Contains(t, msg.Text, "No tickers were mentioned")
	assert.Contains(t, msg.HTML, "No tickers were mentioned")
}

func TestPrintResults(t *testing.T) {
	report := tickerReport()
	report.Sinks = []types.SinkOutcome{{Sink: "file", Rows: 2}, {Sink: "postgres", Error: "refused"}}

	var buf bytes.Buffer
	PrintResults(&buf, report, 10)

	out := buf.String()
	assert.Contains(t, out, "GME: 2 mentions, Sentiment: 5.25/10")
	assert.Contains(t, out, "file: 2 rows")
	assert.Contains(t, out, "postgres failed: refused")
	assert.Less(t, strings.Index(out, "GME"), strings.Index(out, "AMC"))
}

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m...)
	return nil
}

func enabledEmail() config.EmailConfig {
	return config.EmailConfig{
		SMTPServer: "smtp.example.com",
		SMTPPort:   587,
		SMTPUser:   "bot@example.com",
		SMTPPass:   "secret",
		FromEmail:  "bot@example.com",
		ToEmail:    "me@example.com",
	}
}

func TestEmailSenderDeliver(t *testing.T) {
	d := &fakeDialer{}
	s := NewEmailSender(enabledEmail(), NewHTMLEmailRenderer(""), 10, logger.Nop())
	s.dialer = d

	n, err := s.Deliver(context.Background(), tickerReport())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, d.sent, 1)
	assert.Equal(t, []string{"me@example.com"}, d.sent[0].GetHeader("To"))
	assert.Equal(t, []string{DefaultSubject}, d.sent[0].GetHeader("Subject"))
}

func TestEmailSenderDisabled(t *testing.T) {
	cfg := enabledEmail()
	cfg.SMTPPass = ""

	d := &fakeDialer{}
	s := NewEmailSender(cfg, NewHTMLEmailRenderer(""), 10, logger.Nop())
	s.dialer = d

	n, err := s.Deliver(context.Background(), tickerReport())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, d.sent)
}

func TestEmailSenderFailure(t *testing.T) {
	s := NewEmailSender(enabledEmail(), NewHTMLEmailRenderer(""), 10, logger.Nop())
	s.dialer = &fakeDialer{err: errors.New("535 authentication failed")}

	_, err := s.Deliver(context.Background(), tickerReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "535")
}
