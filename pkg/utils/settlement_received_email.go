package utils

import (
	"fmt"
	"time"
)

func SendSettlementReceivedEmail(to, payerName, amount, currency, groupName string, date time.Time) error {
	subject := fmt.Sprintf("💸 %s settled up with you in %s", payerName, groupName)

	body := fmt.Sprintf(`
	<!DOCTYPE html>
	<html lang="en">
	<head><meta charset="UTF-8"><title>Payment Received</title></head>
	<body style="font-family: 'Segoe UI', Roboto, Arial, sans-serif; background-color: #f6f8f7; color: #333; margin: 0; padding: 0;">
		<div style="max-width: 480px; margin: 25px auto; background: #ffffff; border-radius: 12px; border-top: 5px solid #0a4d3c; padding: 20px 18px;">
			<h1 style="font-size: 18px; color: #0a4d3c;">Payment received</h1>
			<p style="font-size: 14px;">
				<strong>%s</strong> recorded a payment of <strong>%s %s</strong>
				towards their debt to you in <strong>%s</strong>.
			</p>
			<p style="font-size: 14px;">Your group balances have been updated.</p>
			<p style="font-size: 12px; color: #888;">Recorded on %s · SplitLedger</p>
		</div>
	</body>
	</html>`, payerName, currency, amount, groupName, date.Format("Jan 2, 2006 15:04"))

	return SendEmail(to, subject, body)
}
