package notify

import "fmt"

// DefaultSender is shown when a custom notification has no sender name
const DefaultSender = "WhatsApp Bot"

// AuthRequiredText is sent once per bot until it authenticates
func AuthRequiredText(botName string) string {
	return fmt.Sprintf("⚠️ Bot %s requires authentication! Please use the 'Auth QR' button if you need to scan the QR code.", botName)
}

// QRCaption is the caption of the QR photo message
func QRCaption(botName string) string {
	return fmt.Sprintf("🔐 QR Code for %s\n\nScan this QR code with WhatsApp to authenticate your bot.", botName)
}

// AuthSuccessText announces a successful authentication
func AuthSuccessText(botName string) string {
	return fmt.Sprintf("✅ Bot %s has been successfully authenticated!", botName)
}

// AuthRevokedText announces a lost authentication
func AuthRevokedText(botName string) string {
	return fmt.Sprintf("🔴 Bot %s has been successfully deauthenticated!", botName)
}

// CustomText formats a free-form notification
func CustomText(sender, message string) string {
	if sender == "" {
		sender = DefaultSender
	}
	return fmt.Sprintf("💬 %s:\n\n%s", sender, message)
}
