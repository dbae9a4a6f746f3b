package models

// SchemaVersion - текущая версия схемы документов. Документы без версии
// считаются записанными старой консолью и проходят Normalize.
const SchemaVersion = 2

// Старые имена полей (времена, когда бизнес назывался "butcher").
var legacyFieldNames = map[string]string{
	"butcherId":   "businessId",
	"butcherName": "businessName",
	"orderStatus": "status",
	"paymentType": "paymentMethod",
}

var legacyStatusValues = map[string]Status{
	"accepted":   StatusConfirmed,
	"onTheWay":   StatusInTransit,
	"on_the_way": StatusInTransit,
	"delivered":  StatusCompleted,
	"canceled":   StatusCancelled,
}

var legacyPaymentValues = map[string]PaymentMethod{
	"credit_card": PaymentCard,
	"online":      PaymentCard,
	"nakit":       PaymentCash,
}

var legacyCourierValues = map[string]CourierType{
	"butcher":  CourierVendor,
	"business": CourierVendor,
	"pickup":   CourierSelfPickup,
	"platform": CourierPlatform,
}

// Normalize переводит старые имена полей и значений документа в канонические.
// Изменяет doc на месте и возвращает его же. Канонические поля имеют приоритет
// над старыми: если есть и businessId, и butcherId, остается businessId.
// Повторный вызов ничего не меняет.
func Normalize(doc map[string]any) map[string]any {
	if doc == nil {
		return doc
	}
	if v, ok := doc["schemaVersion"].(float64); ok && int(v) >= SchemaVersion {
		return doc
	}
	if v, ok := doc["schemaVersion"].(int); ok && v >= SchemaVersion {
		return doc
	}

	for legacy, canonical := range legacyFieldNames {
		moveField(doc, legacy, canonical)
	}

	// Палатки кермеса хранили ссылку на мероприятие вместо бизнеса.
	if kermesID, ok := doc["kermesId"]; ok {
		if _, has := doc["businessId"]; !has {
			doc["businessId"] = kermesID
		}
		if _, has := doc["channel"]; !has {
			doc["channel"] = string(ChannelKermesBooth)
		}
		delete(doc, "kermesId")
	}

	if s, ok := doc["status"].(string); ok {
		if canonical, found := legacyStatusValues[s]; found {
			doc["status"] = string(canonical)
		}
	}
	if s, ok := doc["paymentMethod"].(string); ok {
		if canonical, found := legacyPaymentValues[s]; found {
			doc["paymentMethod"] = string(canonical)
		}
	}
	if s, ok := doc["courierType"].(string); ok {
		if canonical, found := legacyCourierValues[s]; found {
			doc["courierType"] = string(canonical)
		}
	}

	doc["schemaVersion"] = SchemaVersion
	return doc
}

func moveField(doc map[string]any, from, to string) {
	v, ok := doc[from]
	if !ok {
		return
	}
	if _, has := doc[to]; !has {
		doc[to] = v
	}
	delete(doc, from)
}
