package utils

import "fmt"

func SendDebtorReminderEmail(to, debtorName, amountOwed, currency, creditorName, groupName string) error {
	subject := fmt.Sprintf("⏰ Reminder: you owe %s %s in %s", currency, amountOwed, groupName)

	body := fmt.Sprintf(`
	<!DOCTYPE html>
	<html lang="en">
	<head><meta charset="UTF-8"><title>Debt Reminder</title></head>
	<body style="font-family: 'Segoe UI', Roboto, Arial, sans-serif; background-color: #f6f8f7; color: #333; margin: 0; padding: 0;">
		<div style="max-width: 480px; margin: 25px auto; background: #ffffff; border-radius: 12px; border-top: 5px solid #b3541e; padding: 20px 18px;">
			<h1 style="font-size: 18px; color: #b3541e;">Hi %s,</h1>
			<p style="font-size: 14px;">
				A friendly reminder that you still owe <strong>%s %s</strong>
				to <strong>%s</strong> in the group <strong>%s</strong>.
			</p>
			<p style="font-size: 14px;">Settle up whenever you get the chance.</p>
			<p style="font-size: 12px; color: #888;">SplitLedger</p>
		</div>
	</body>
	</html>`, debtorName, currency, amountOwed, creditorName, groupName)

	return SendEmail(to, subject, body)
}
