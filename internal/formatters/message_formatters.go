package formatters

import (
	"fmt"
	"html"
	"strings"

	"marketadmin/internal/constants"
	"marketadmin/internal/models"
	"marketadmin/internal/utils"
)

const (
	separator = "─ ─ ─ ─ ─ ─ ─ ─ ─ ─ ─ ─ ─"
)

// FormatOrderStatusForCustomer - уведомление клиента о смене статуса заказа.
// Возвращает тему и текст; причина отмены и возврат берутся из флага уведомления.
func FormatOrderStatusForCustomer(order models.Order) (string, string) {
	status := order.Status
	if order.Notification != nil {
		status = order.Notification.Status
	}
	subject := fmt.Sprintf("Sipariş %s: %s", order.OrderNumber, constants.StatusDisplayMap[status])

	var b strings.Builder
	name := order.CustomerName
	if name == "" {
		name = "Değerli müşterimiz"
	}
	b.WriteString(fmt.Sprintf("Merhaba %s,\n\n", name))
	b.WriteString(fmt.Sprintf("%s %s siparişinizin durumu: %s\n", constants.StatusEmojiMap[status], order.OrderNumber, constants.StatusDisplayMap[status]))
	if order.BusinessName != "" {
		b.WriteString(fmt.Sprintf("İşletme: %s\n", order.BusinessName))
	}

	switch status {
	case models.StatusConfirmed:
		if len(order.MissingItems) > 0 {
			b.WriteString("\nAşağıdaki ürünler stokta olmadığı için siparişten çıkarıldı:\n")
			for _, item := range order.MissingItems {
				b.WriteString(fmt.Sprintf(" •  %s x%d\n", item.Name, item.Quantity))
			}
			b.WriteString(fmt.Sprintf("Yeni toplam: %s\n", utils.FormatMoney(order.Total, order.Currency)))
		}
	case models.StatusInTransit:
		if order.Shipment != nil && order.Shipment.TrackingNumber != "" {
			b.WriteString(fmt.Sprintf("Kargo: %s, takip no: %s\n", order.Shipment.Carrier, order.Shipment.TrackingNumber))
		}
	case models.StatusCancelled:
		if order.Notification != nil {
			reason := constants.CancellationReasonDisplayMap[order.Notification.Reason]
			if order.Notification.ReasonText != "" {
				reason = order.Notification.ReasonText
			}
			if reason != "" {
				b.WriteString(fmt.Sprintf("İptal nedeni: %s\n", reason))
			}
		}
	}

	if order.Refund != nil && order.Refund.Required {
		b.WriteString(fmt.Sprintf("\n💳 %s tutarındaki iade kartınıza yapılacaktır.\n", utils.FormatMoney(order.Refund.Amount, order.Currency)))
	}
	return subject, b.String()
}

// FormatRefundAlertForOperator - сообщение оператору (Telegram, HTML) об обязательстве возврата.
func FormatRefundAlertForOperator(order models.Order) string {
	var b strings.Builder
	b.WriteString("💳 <b>İade gerekiyor</b>\n")
	b.WriteString(separator + "\n")
	b.WriteString(fmt.Sprintf(" •  Sipariş: %s\n", html.EscapeString(order.OrderNumber)))
	if order.BusinessName != "" {
		b.WriteString(fmt.Sprintf(" •  İşletme: %s\n", html.EscapeString(order.BusinessName)))
	}
	b.WriteString(fmt.Sprintf(" •  Durum: %s\n", constants.StatusDisplayMap[order.Status]))
	if order.Refund != nil {
		b.WriteString(fmt.Sprintf(" •  Tutar: %s\n", utils.FormatMoney(order.Refund.Amount, order.Currency)))
	}
	if order.CustomerPhone != "" {
		b.WriteString(fmt.Sprintf(" •  Müşteri: %s\n", html.EscapeString(utils.MaskPhone(order.CustomerPhone))))
	}
	return b.String()
}

// FormatWelcome - приветствие новой учетной записи (email, SMS, WhatsApp).
func FormatWelcome(name string, role models.Role, businessName, login, consoleURL string) (string, string) {
	subject := "Hesabınız oluşturuldu"
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Merhaba %s,\n\n", name))
	b.WriteString(fmt.Sprintf("Yönetim paneli hesabınız %s rolüyle oluşturuldu.\n", constants.RoleDisplayMap[role]))
	if businessName != "" {
		b.WriteString(fmt.Sprintf("İşletme: %s\n", businessName))
	}
	b.WriteString(fmt.Sprintf("Giriş: %s\n", login))
	if consoleURL != "" {
		b.WriteString(fmt.Sprintf("Panel: %s\n", consoleURL))
	}
	b.WriteString("\nİlk girişten sonra şifrenizi değiştirmenizi öneririz.")
	return subject, b.String()
}

// FormatInvitationCaption - подпись к QR-коду приглашения (Telegram, HTML).
func FormatInvitationCaption(inv models.Invitation, link string) string {
	var b strings.Builder
	b.WriteString("✉️ <b>Yeni davet</b>\n")
	b.WriteString(fmt.Sprintf(" •  Rol: %s\n", constants.RoleDisplayMap[inv.Role]))
	if inv.BusinessName != "" {
		b.WriteString(fmt.Sprintf(" •  İşletme: %s\n", html.EscapeString(inv.BusinessName)))
	}
	b.WriteString(fmt.Sprintf(" •  Son geçerlilik: %s\n", inv.ExpiresAt.Format("02.01.2006 15:04")))
	b.WriteString(fmt.Sprintf(" •  Bağlantı: %s", html.EscapeString(link)))
	return b.String()
}

// FormatRegistrationForOperator - анкета, присланная по приглашению.
func FormatRegistrationForOperator(inv models.Invitation) string {
	var b strings.Builder
	b.WriteString("📝 <b>Davet kaydı onay bekliyor</b>\n")
	b.WriteString(separator + "\n")
	if form := inv.Registration; form != nil {
		b.WriteString(fmt.Sprintf(" •  Ad: %s %s\n", html.EscapeString(form.FirstName), html.EscapeString(form.LastName)))
		b.WriteString(fmt.Sprintf(" •  E-posta: %s\n", html.EscapeString(form.Email)))
		b.WriteString(fmt.Sprintf(" •  Telefon: %s\n", html.EscapeString(form.Phone)))
	}
	b.WriteString(fmt.Sprintf(" •  Rol: %s\n", constants.RoleDisplayMap[inv.Role]))
	if inv.BusinessName != "" {
		b.WriteString(fmt.Sprintf(" •  İşletme: %s\n", html.EscapeString(inv.BusinessName)))
	}
	return b.String()
}
