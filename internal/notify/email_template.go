package notify

const emailHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>r/{{.Subreddit}} tickers</title>
  <style>
    body {
      margin: 0;
      padding: 24px;
      background-color: #f3f4f6;
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
      color: #111827;
      line-height: 1.5;
    }

    .container {
      max-width: 640px;
      margin: 0 auto;
      background: #ffffff;
      border-radius: 8px;
      border: 1px solid #e5e7eb;
      overflow: hidden;
    }

    .header {
      padding: 20px 24px;
      background: linear-gradient(135deg, #463737 0%, #37393b 100%);
      color: #ffffff;
    }

    .subreddit {
      font-size: 22px;
      font-weight: 700;
      letter-spacing: 0.02em;
      margin-bottom: 4px;
    }

    .run-date {
      font-size: 14px;
      opacity: 0.9;
    }

    .section {
      padding: 16px 24px;
      border-top: 1px solid #f3f4f6;
    }

    .section-title {
      font-size: 11px;
      font-weight: 700;
      color: #6b7280;
      text-transform: uppercase;
      letter-spacing: 0.1em;
      margin-bottom: 12px;
    }

    table {
      width: 100%;
      border-collapse: collapse;
      font-size: 14px;
    }

    th {
      text-align: left;
      padding: 6px 8px;
      color: #6b7280;
      font-weight: 500;
      border-bottom: 1px solid #e5e7eb;
    }

    td {
      padding: 6px 8px;
      border-bottom: 1px solid #f3f4f6;
    }

    .ticker {
      font-weight: 700;
      letter-spacing: 0.05em;
    }

    .num {
      text-align: right;
      font-variant-numeric: tabular-nums;
    }

    .empty {
      font-size: 14px;
      color: #6b7280;
    }

    .footer {
      padding: 16px 24px;
      font-size: 12px;
      color: #9ca3af;
      text-align: center;
      background: #f9fafb;
      border-top: 1px solid #f3f4f6;
    }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <div class="subreddit">Top tickers on r/{{.Subreddit}}</div>
      <div class="run-date">{{.RunAt.UTC.Format "02 Jan 2006 15:04 MST"}}</div>
    </div>

    <div class="section">
      <div class="section-title">Mentions and sentiment</div>
      {{if .Results}}
      <table>
        <tr>
          <th>#</th>
          <th>Ticker</th>
          <th class="num">Mentions</th>
          <th class="num">Sentiment</th>
          {{if .Granularity.PerPost}}<th>Post date</th>{{end}}
        </tr>
        {{$g := .Granularity}}{{$scale := scale .ScaleMax}}
        {{range $i, $r := .Results}}
        <tr>
          <td>{{inc $i}}</td>
          <td class="ticker">{{$r.Ticker}}</td>
          <td class="num">{{$r.Mentions}}</td>
          <td class="num">{{sentiment $r.AvgSentiment}}/{{$scale}}</td>
          {{if $g.PerPost}}<td>{{postdate $r.PostDate $g}}</td>{{end}}
        </tr>
        {{end}}
      </table>
      {{else}}
      <div class="empty">No tickers were mentioned in this run.</div>
      {{end}}
    </div>

    <div class="footer">
      {{len .Results}} of {{.Total}} tickers shown
    </div>
  </div>
</body>
</html>`
