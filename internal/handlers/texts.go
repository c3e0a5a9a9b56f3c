package handlers

import (
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Labels are the reply-keyboard captions and their accepted synonyms.
// Button presses arrive as plain text, so these double as triggers.
type Labels struct {
	AddAppointment  string   `mapstructure:"add_appointment"`
	Search          string   `mapstructure:"search"`
	AllAppointments []string `mapstructure:"all_appointments"`
	ThisWeek        string   `mapstructure:"this_week"`
	Completed       string   `mapstructure:"completed"`
	StickyNotes     []string `mapstructure:"sticky_notes"`
	Report          string   `mapstructure:"report"`
	PendingList     []string `mapstructure:"pending_list"`
	Cancel          string   `mapstructure:"cancel"`

	Today       string   `mapstructure:"today"`
	Tomorrow    string   `mapstructure:"tomorrow"`
	DescChoices []string `mapstructure:"desc_choices"`

	CompleteButton string `mapstructure:"complete_button"`
	DeleteButton   string `mapstructure:"delete_button"`
}

// The first entry of a synonym list is the one shown on the keyboard.
func DefaultLabels() Labels {
	return Labels{
		AddAppointment:  "📅 Randevu Ekle",
		Search:          "🔍 Ara",
		AllAppointments: []string{"📅 Tüm Randevular", "📅 Bugün/Yarın"},
		ThisWeek:        "📅 Bu Hafta",
		Completed:       "✅ Tamamlananlar",
		StickyNotes:     []string{"📝 Yapışkan Notlar", "📝 Notlarımı Getir"},
		Report:          "📊 Durum Raporu",
		PendingList:     []string{"📋 Bekleyen Listesi", "📋 Listele"},
		Cancel:          "❌ İptal",

		Today:       "Bugün",
		Tomorrow:    "Yarın",
		DescChoices: []string{"Kart Çekimi", "Havale", "Ödeme"},

		CompleteButton: "✅ Tamamla",
		DeleteButton:   "🗑️ Sil",
	}
}

// LoadLabels overlays the YAML/JSON file at path on the defaults.
// An empty path returns the defaults unchanged.
func LoadLabels(path string) (Labels, error) {
	l := DefaultLabels()
	if path == "" {
		return l, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return l, errors.Wrapf(err, "read labels %s", path)
	}
	// Lists replace the defaults instead of being merged index by index.
	replace := func(c *mapstructure.DecoderConfig) { c.ZeroFields = true }
	if err := v.Unmarshal(&l, replace); err != nil {
		return l, errors.Wrapf(err, "decode labels %s", path)
	}
	return l, nil
}

func first(list []string) string {
	if len(list) == 0 {
		return ""
	}
	return list[0]
}

func oneOf(text string, list ...string) bool {
	for _, s := range list {
		if s != "" && text == s {
			return true
		}
	}
	return false
}

const (
	txtMainMenu      = "👋 <b>Ana Menü</b>\nNe yapmak istersiniz?"
	txtAskName       = "👤 <b>Müşteri adı nedir?</b>"
	txtAskDesc       = "📝 <b>%s</b> için işlem nedir?"
	txtAskDate       = "📅 <b>Tarih?</b>"
	txtDateHint      = "⚠️ Tarihi <code>GG.AA.YYYY</code> biçiminde yazın ya da Bugün/Yarın seçin."
	txtSaved         = "✅ <b>Kayıt Başarılı!</b>\n👤 %s\n📅 %s %s"
	txtAskSearch     = "🔍 <b>Aramak istediğiniz müşteri adı veya notu yazın:</b>"
	txtSearchHead    = "🔍 <b>Arama Sonuçları:</b>"
	txtSearchNone    = "🔍 \"<b>%s</b>\" için sonuç bulunamadı."
	txtFlowHead      = "🔍 <b>\"%s\" için sonuçlar:</b>"
	txtFlowNone      = "🔍 \"<b>%s</b>\" bulunamadı."
	txtSelectTask    = "👇 İşlem yapmak istediğiniz kayda tıklayın:"
	txtNoPendingWork = "🎉 Hiç bekleyen işiniz yok."
	txtDetailFooter  = "\n\nNe yapmak istersiniz?"

	txtAdded      = "✅ <b>Kayıt Eklendi!</b>\n👤 %s\n📅 %s %s"
	txtAddUsage   = "ℹ️ Kullanım: <code>/ekle Ad Soyad GG.AA.YYYY</code>"
	txtCompleted  = "✅ <b>İşlem Tamamlandı:</b>\n👤 %s"
	txtNotFound   = "❌ <b>Bulunamadı</b> veya zaten tamamlanmış: \"%s\""
	txtDoneUsage  = "ℹ️ Kullanım: <code>/tamamla Ad</code>"
	txtAllHead    = "📅 <b>Tüm Bekleyen Randevular:</b>\n"
	txtAllNone    = "🎉 Hiç bekleyen randevunuz yok!"
	txtMore       = "\n... ve %d kayıt daha."
	txtWeekHead   = "📅 <b>Bu Hafta (%s / %s)</b>\n\n"
	txtWeekNone   = "📅 Bu hafta için kayıtlı iş yok."
	txtDoneHead   = "✅ <b>Son Tamamlanan 10 İş:</b>\n\n"
	txtDoneNone   = "📭 Henüz tamamlanan iş yok."
	txtReport     = "📈 <b>Rapor:</b>\n\nBugün: %d Randevu\nToplam: %d Kayıt"
	txtSendFailed = "⚠️ Dosya gönderilemedi."

	toastCompleted = "İş Tamamlandı!"
	toastReopened  = "Geri Alındı"
	toastDeleted   = "Kayıt Silindi"
	toastMissing   = "Kayıt bulunamadı"
	txtStatus      = "%s <b>İşlem Durumu Güncellendi</b>\n👤 %s\nℹ️ Durum: %s"
	txtDeleted     = "🗑️ <b>Kayıt Silindi</b>\n👤 %s"

	contentViaBot = "Telegram ile eklendi"
	defaultTime   = "09:00"
)
