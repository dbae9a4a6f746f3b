package formatters

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"marketadmin/internal/models"
)

func TestFormatOrderStatusForCustomerCancelled(t *testing.T) {
	order := models.Order{
		OrderNumber:  "A-1001",
		CustomerName: "Ayşe",
		BusinessName: "Öz Kasap",
		Status:       models.StatusCancelled,
		Currency:     "EUR",
		Refund:       &models.Refund{Required: true, Amount: 50},
		Notification: &models.CustomerNotification{Status: models.StatusCancelled, Reason: models.ReasonCustomerRequest, RefundOwed: true},
	}

	subject, body := FormatOrderStatusForCustomer(order)
	assert.Equal(t, "Sipariş A-1001: İptal edildi", subject)
	assert.Contains(t, body, "Merhaba Ayşe")
	assert.Contains(t, body, "İptal nedeni: Müşteri talebi")
	assert.Contains(t, body, "50,00 €")
}

func TestFormatOrderStatusForCustomerMissingItems(t *testing.T) {
	order := models.Order{
		OrderNumber:  "A-1002",
		Status:       models.StatusConfirmed,
		Currency:     "EUR",
		Total:        42,
		MissingItems: []models.LineItem{{Name: "Ayran", Quantity: 1}},
	}

	_, body := FormatOrderStatusForCustomer(order)
	assert.Contains(t, body, "Değerli müşterimiz")
	assert.Contains(t, body, "Ayran x1")
	assert.Contains(t, body, "Yeni toplam: 42,00 €")
	assert.NotContains(t, body, "iade")
}

func TestFormatRefundAlertEscapesHTML(t *testing.T) {
	text := FormatRefundAlertForOperator(models.Order{
		OrderNumber:  "A-1",
		BusinessName: "Kebap <&> Haus",
		Status:       models.StatusCancelled,
		Currency:     "EUR",
		Refund:       &models.Refund{Required: true, Amount: 8},
	})
	assert.Contains(t, text, "Kebap &lt;&amp;&gt; Haus")
	assert.Contains(t, text, "8,00 €")
}

func TestFormatWelcomeAndInvitation(t *testing.T) {
	subject, body := FormatWelcome("Mehmet", models.RoleBusinessOwner, "Öz Kasap", "mehmet@example.com", "https://console.example.com")
	assert.Equal(t, "Hesabınız oluşturuldu", subject)
	assert.Contains(t, body, "İşletme Sahibi")
	assert.Contains(t, body, "https://console.example.com")

	inv := models.Invitation{Role: models.RoleStaff, ExpiresAt: time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)}
	caption := FormatInvitationCaption(inv, "https://console.example.com/register/t1")
	assert.Contains(t, caption, "06.05.2024 10:00")
	assert.Contains(t, caption, "Personel")
}
