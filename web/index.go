package web

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/glyphgate/glyphgate"
	"github.com/glyphgate/glyphgate/lib/localization"
)

// SamplePayload is the verification body shown on the index page.
const SamplePayload = `{"captchaId": "20240101-1200-abcd1234", "captchaValue": "4821"}`

// Index lists the API endpoints relative to baseURL.
func Index(baseURL string, localizer *localization.SimpleLocalizer) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%[1]s</title>
</head>
<body>
<h1>%[1]s</h1>
<p>%[2]s</p>
<ul>
<li>
<a href="%[3]s/getCaptcha">%[3]s/getCaptcha</a>
<ul>
<li><b>GET</b>, <b>POST</b></li>
<li>%[4]s</li>
</ul>
</li>
<li>
<a href="%[3]s/checkCaptcha">%[3]s/checkCaptcha</a>
<ul>
<li><b>GET</b>, <b>POST</b></li>
<li>%[5]s</li>
<li>%[6]s: <code>%[7]s</code></li>
</ul>
</li>
</ul>
<footer><small>glyphgate %[8]s</small></footer>
</body>
</html>
`,
			templ.EscapeString(localizer.T("index_title")),
			templ.EscapeString(localizer.T("index_intro")),
			templ.EscapeString(baseURL),
			templ.EscapeString(localizer.T("index_get_captcha")),
			templ.EscapeString(localizer.T("index_check_captcha")),
			templ.EscapeString(localizer.T("index_sample_payload")),
			templ.EscapeString(SamplePayload),
			templ.EscapeString(glyphgate.Version),
		)
		return err
	})
}
