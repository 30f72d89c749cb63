package notify

import (
	"bytes"
	"html/template"

	"github.com/eel-studio/storefront/internal/domain/order"
)

const baseStyle = "background:#0d0d0d;color:#e4e4e7;padding:40px;border-radius:16px;"

const summaryTable = `{{define "summary"}}
<table style="border-collapse:collapse;width:100%;font-family:sans-serif;font-size:14px;">
  <tr><td style="padding:8px 0;color:#888;">사이즈</td><td style="padding:8px 0;color:#fff;">{{.Size}}</td></tr>
  <tr><td style="padding:8px 0;color:#888;">레진 색상</td><td style="padding:8px 0;color:#fff;">{{.Resin}}</td></tr>
  <tr><td style="padding:8px 0;color:#888;">우드 종류</td><td style="padding:8px 0;color:#fff;">{{.Wood}}</td></tr>
  <tr><td style="padding:8px 0;color:#888;">다리 스타일</td><td style="padding:8px 0;color:#fff;">{{.Leg}}</td></tr>
  <tr style="border-top:1px solid #333;">
    <td style="padding:12px 0 0;color:#888;font-weight:600;">예상 금액</td>
    <td style="padding:12px 0 0;color:#fff;font-weight:700;">{{.TotalPriceFormatted}}</td>
  </tr>
</table>
{{end}}`

const buttonStyle = "display:inline-block;margin-top:28px;padding:12px 24px;background:#fff;color:#000;border-radius:8px;text-decoration:none;font-weight:600;font-size:14px;"

var (
	operatorTmpl = template.Must(template.New("operator").Parse(summaryTable + `
<div style="` + baseStyle + `">
  <h2 style="margin:0 0 8px;font-size:20px;color:#fff;">새 주문이 접수됐습니다</h2>
  <p style="margin:0 0 24px;color:#888;font-size:13px;">주문번호: {{.OrderID}}</p>
  <p style="margin:0 0 4px;color:#888;font-size:13px;">주문자: {{if .BuyerName}}{{.BuyerName}}{{else}}-{{end}} ({{.BuyerEmail}})</p>
  {{template "summary" .Summary}}
  <a href="{{.SiteURL}}/admin" style="` + buttonStyle + `">관리자 페이지에서 확인하기</a>
</div>`))

	buyerTmpl = template.Must(template.New("buyer").Parse(summaryTable + `
<div style="` + baseStyle + `">
  <h2 style="margin:0 0 8px;font-size:20px;color:#fff;">주문이 접수됐습니다</h2>
  <p style="margin:0 0 24px;color:#888;font-size:13px;">빠른 시일 내에 확인 후 연락드리겠습니다.</p>
  {{template "summary" .Summary}}
  <a href="{{.SiteURL}}/orders" style="` + buttonStyle + `">내 주문 내역 보기</a>
</div>`))
)

type mailData struct {
	order.Notification
	SiteURL string
}

func render(t *template.Template, n order.Notification, siteURL string) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, mailData{Notification: n, SiteURL: siteURL}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// OperatorSubject names the buyer, falling back to the email.
func OperatorSubject(n order.Notification) string {
	who := n.BuyerName
	if who == "" {
		who = n.BuyerEmail
	}
	return "[EEL] 새 주문 접수 — " + who
}

const BuyerSubject = "[EEL] 주문이 접수됐습니다"
