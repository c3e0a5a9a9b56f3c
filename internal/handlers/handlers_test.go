package handlers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jmhodges/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"telegram-customer-calendar/internal/gateway"
	"telegram-customer-calendar/internal/messages"
	"telegram-customer-calendar/internal/models"
	"telegram-customer-calendar/internal/storage"
)

// ---------- fakes ----------

type memStore struct {
	seq   int
	appts map[string]*models.Appointment
	notes []models.StickyNote
}

func newMemStore() *memStore {
	return &memStore{appts: map[string]*models.Appointment{}}
}

func (m *memStore) add(a models.Appointment) string {
	_ = m.CreateAppointment(context.Background(), &a)
	return a.ID
}

func (m *memStore) CreateAppointment(_ context.Context, a *models.Appointment) error {
	m.seq++
	if a.ID == "" {
		a.ID = fmt.Sprintf("id-%02d", m.seq)
	}
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func (m *memStore) GetAppointment(_ context.Context, id string) (*models.Appointment, error) {
	a, ok := m.appts[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) ListAppointments(context.Context) ([]models.Appointment, error) {
	var out []models.Appointment
	for _, a := range m.appts {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		if out[i].Time != out[j].Time {
			return out[i].Time < out[j].Time
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memStore) UpdateAppointment(_ context.Context, id string, p models.AppointmentPatch) error {
	a, ok := m.appts[id]
	if !ok {
		return storage.ErrNotFound
	}
	if p.Completed != nil {
		a.Completed = *p.Completed
		a.CompletedAt = p.CompletedAt
	}
	return nil
}

func (m *memStore) DeleteAppointment(_ context.Context, id string) error {
	if _, ok := m.appts[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.appts, id)
	return nil
}

func (m *memStore) ListStickyNotes(context.Context) ([]models.StickyNote, error) {
	return m.notes, nil
}

type toast struct{ id, text string }

type recorder struct {
	msgs   []gateway.Message
	toasts []toast
}

func (r *recorder) SendMessage(_ context.Context, _ models.TelegramConfig, m gateway.Message) bool {
	r.msgs = append(r.msgs, m)
	return true
}

func (r *recorder) AnswerCallbackQuery(_ context.Context, _, id, text string) {
	r.toasts = append(r.toasts, toast{id, text})
}

func (r *recorder) texts() []string {
	var out []string
	for _, m := range r.msgs {
		out = append(out, m.Text)
	}
	return out
}

func (r *recorder) last() gateway.Message {
	if len(r.msgs) == 0 {
		return gateway.Message{}
	}
	return r.msgs[len(r.msgs)-1]
}

func (r *recorder) reset() {
	r.msgs, r.toasts = nil, nil
}

type digestCalls struct {
	kinds []messages.Kind
	err   error
}

func (d *digestCalls) Send(_ context.Context, _ models.TelegramConfig, kind messages.Kind, _ string) error {
	d.kinds = append(d.kinds, kind)
	return d.err
}

// ---------- setup ----------

const chat = "100"

var cfg = models.TelegramConfig{BotToken: "t", ChatIDs: chat, Enabled: true}

type fixture struct {
	h       *Handler
	store   *memStore
	out     *recorder
	digests *digestCalls
	clk     clock.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := clock.NewFake()
	// Wednesday 5 March 2025, 14:30 local
	loc := time.FixedZone("TRT", 3*60*60)
	clk.Set(time.Date(2025, 3, 5, 14, 30, 0, 0, loc))

	f := &fixture{store: newMemStore(), out: &recorder{}, digests: &digestCalls{}, clk: clk}
	log := zap.NewNop().Sugar()
	f.h = &Handler{
		Store:        f.store,
		Out:          f.out,
		Digests:      f.digests,
		Conv:         NewConversations(16, time.Hour, log, nil),
		Labels:       DefaultLabels(),
		Loc:          loc,
		Clock:        clk,
		DateFallback: FallbackToday,
		Log:          log,
	}
	return f
}

func (f *fixture) say(texts ...string) {
	for _, text := range texts {
		f.h.HandleMessage(context.Background(), cfg, chat, text)
	}
}

func (f *fixture) state() models.State {
	return f.h.Conv.State(chat)
}

func (f *fixture) list(t *testing.T) []models.Appointment {
	t.Helper()
	appts, err := f.store.ListAppointments(context.Background())
	require.NoError(t, err)
	return appts
}

// ---------- conversation ----------

func TestAddFlowCreatesAppointmentForTomorrow(t *testing.T) {
	f := newFixture(t)

	f.say("📅 Randevu Ekle")
	assert.Equal(t, models.StateWaitingName, f.state())
	assert.Equal(t, txtAskName, f.out.last().Text)

	f.say("Ayşe")
	assert.Equal(t, models.StateWaitingDesc, f.state())
	require.NotNil(t, f.out.last().Keyboard)
	assert.Equal(t, "Kart Çekimi", f.out.last().Keyboard.Keyboard[0][0].Text)

	f.say("Ödeme")
	assert.Equal(t, models.StateWaitingDate, f.state())

	f.say("Yarın")
	assert.Equal(t, models.StateIdle, f.state())

	appts := f.list(t)
	require.Len(t, appts, 1)
	a := appts[0]
	assert.Equal(t, "Ayşe", a.Customer)
	assert.Equal(t, "Ödeme", a.Content)
	assert.Equal(t, "2025-03-06", a.Date)
	assert.Equal(t, "09:00", a.Time)
	assert.False(t, a.Completed)

	texts := f.out.texts()
	assert.Contains(t, texts, "✅ <b>Kayıt Başarılı!</b>\n👤 Ayşe\n📅 06.03.2025 Perşembe")
	assert.Equal(t, txtMainMenu, f.out.last().Text)
}

func TestAddFlowDateChoices(t *testing.T) {
	cases := []struct {
		answer   string
		fallback string
		want     string
	}{
		{"Bugün", FallbackToday, "2025-03-05"},
		{"7/4/2025", FallbackToday, "2025-04-07"},
		{"sonra", FallbackToday, "2025-03-05"},
		{"31.02.2025", FallbackToday, "2025-03-05"},
	}
	for _, c := range cases {
		t.Run(c.answer, func(t *testing.T) {
			f := newFixture(t)
			f.h.DateFallback = c.fallback
			f.say("📅 Randevu Ekle", "Ali", "Havale", c.answer)

			appts := f.list(t)
			require.Len(t, appts, 1)
			assert.Equal(t, c.want, appts[0].Date)
			assert.Equal(t, models.StateIdle, f.state())
		})
	}
}

func TestAddFlowRejectsBadDate(t *testing.T) {
	f := newFixture(t)
	f.h.DateFallback = FallbackReject

	f.say("📅 Randevu Ekle", "Ali", "Havale", "haftaya")
	assert.Empty(t, f.list(t))
	assert.Equal(t, models.StateWaitingDate, f.state())
	assert.Equal(t, txtDateHint, f.out.last().Text)

	f.say("10.03.2025")
	appts := f.list(t)
	require.Len(t, appts, 1)
	assert.Equal(t, "2025-03-10", appts[0].Date)
	assert.Equal(t, "Ali", appts[0].Customer)
}

func TestCancelResetsFromAnyState(t *testing.T) {
	steps := map[models.State][]string{
		models.StateWaitingName:       {"📅 Randevu Ekle"},
		models.StateWaitingDesc:       {"📅 Randevu Ekle", "Ayşe"},
		models.StateWaitingDate:       {"📅 Randevu Ekle", "Ayşe", "Ödeme"},
		models.StateWaitingSearch:     {"🔍 Ara"},
		models.StateWaitingSelectTask: {"📋 Bekleyen Listesi"},
	}
	for from, enter := range steps {
		for _, keyword := range []string{"/start", "❌ İptal", "menü", "menu", "/menu"} {
			t.Run(from.String()+"/"+keyword, func(t *testing.T) {
				f := newFixture(t)
				f.store.add(models.Appointment{Customer: "Kemal", Content: "Havale", Date: "2025-03-06", Time: "10:00"})

				f.say(enter...)
				require.Equal(t, from, f.state())

				f.say(keyword)
				assert.Equal(t, models.StateIdle, f.state())
				assert.Equal(t, txtMainMenu, f.out.last().Text)

				// A stale flow would turn this into an appointment, a search
				// or a task selection.
				f.out.reset()
				f.say("Kemal")
				assert.Len(t, f.list(t), 1)
				require.Len(t, f.out.msgs, 1)
				assert.Equal(t, txtMainMenu, f.out.last().Text)

				f.say("📅 Randevu Ekle", "Veli", "Havale", "Bugün")
				appts := f.list(t)
				require.Len(t, appts, 2)
				assert.Equal(t, "Veli", appts[0].Customer)
				assert.Equal(t, "2025-03-05", appts[0].Date)
			})
		}
	}
}

func TestUnknownIdleTextShowsMenu(t *testing.T) {
	f := newFixture(t)
	f.say("merhaba")
	assert.Equal(t, models.StateIdle, f.state())
	msg := f.out.last()
	assert.Equal(t, txtMainMenu, msg.Text)
	require.NotNil(t, msg.Keyboard)
	assert.Len(t, msg.Keyboard.Keyboard, 5)
	assert.Equal(t, "📅 Randevu Ekle", msg.Keyboard.Keyboard[0][0].Text)
	assert.Equal(t, "📋 Bekleyen Listesi", msg.Keyboard.Keyboard[3][1].Text)
}

func TestSearchFlow(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 7; i++ {
		f.store.add(models.Appointment{Customer: fmt.Sprintf("İsmail %d", i), Date: "2025-03-10", Time: fmt.Sprintf("1%d:00", i)})
	}
	f.store.add(models.Appointment{Customer: "Zeynep", Content: "ismail için havale", Date: "2025-01-01"})

	f.say("🔍 Ara")
	assert.Equal(t, models.StateWaitingSearch, f.state())
	assert.Equal(t, txtAskSearch, f.out.last().Text)

	f.out.reset()
	f.say("ismail")
	assert.Equal(t, models.StateIdle, f.state())

	var cards int
	for _, m := range f.out.msgs {
		if m.Inline != nil {
			cards++
			data := *m.Inline.InlineKeyboard[0][0].CallbackData
			assert.True(t, strings.HasPrefix(data, "complete_"))
		}
	}
	assert.Equal(t, 5, cards)
	assert.Equal(t, "🔍 <b>\"ismail\" için sonuçlar:</b>", f.out.msgs[0].Text)
	assert.Contains(t, f.out.msgs[1].Text, "Zeynep")
	assert.Equal(t, txtMainMenu, f.out.last().Text)
}

func TestSearchFlowNotFound(t *testing.T) {
	f := newFixture(t)
	f.say("/ara", "yok")
	assert.Equal(t, models.StateIdle, f.state())
	assert.Contains(t, f.out.texts(), "🔍 \"<b>yok</b>\" bulunamadı.")
}

func TestSelectTaskFlow(t *testing.T) {
	f := newFixture(t)
	f.store.add(models.Appointment{Customer: "Ayşe", Content: "eski", Date: "2025-03-01", Completed: true})
	id := f.store.add(models.Appointment{Customer: "Ayşe", Content: "Ödeme", Date: "2025-03-07", Time: "09:00"})
	for i := 0; i < 12; i++ {
		f.store.add(models.Appointment{Customer: fmt.Sprintf("Müşteri %02d", i), Date: "2025-04-01"})
	}

	f.say("📋 Bekleyen Listesi")
	assert.Equal(t, models.StateWaitingSelectTask, f.state())
	kb := f.out.last().Keyboard
	require.NotNil(t, kb)
	assert.Len(t, kb.Keyboard, 11)
	assert.Equal(t, "🔹 Ayşe (2025-03-07)", kb.Keyboard[0][0].Text)

	f.out.reset()
	f.say("🔹 Ayşe (2025-03-07)")
	assert.Equal(t, models.StateIdle, f.state())
	require.Len(t, f.out.msgs, 2)
	card := f.out.msgs[0]
	assert.Equal(t, "👤 <b>Ayşe</b>\n📅 2025-03-07 09:00\n📝 Ödeme\n\nNe yapmak istersiniz?", card.Text)
	require.NotNil(t, card.Inline)
	assert.Len(t, card.Inline.InlineKeyboard, 2)
	assert.Equal(t, "delete_"+id, *card.Inline.InlineKeyboard[1][0].CallbackData)

	f.say("📋 Bekleyen Listesi", "bilinmeyen")
	assert.Equal(t, models.StateIdle, f.state())
	assert.Equal(t, txtMainMenu, f.out.last().Text)
}

func TestSelectTaskWithNothingPending(t *testing.T) {
	f := newFixture(t)
	f.say("📋 Listele")
	assert.Equal(t, models.StateIdle, f.state())
	assert.Equal(t, txtNoPendingWork, f.out.last().Text)
}

// ---------- stateless commands ----------

func TestAddCommandKeepsState(t *testing.T) {
	f := newFixture(t)
	f.say("📅 Randevu Ekle")
	f.say("/ekle Mehmet 05.03.2025")

	assert.Equal(t, models.StateWaitingName, f.state())
	appts := f.list(t)
	require.Len(t, appts, 1)
	assert.Equal(t, "Mehmet", appts[0].Customer)
	assert.Equal(t, "2025-03-05", appts[0].Date)
	assert.Equal(t, "09:00", appts[0].Time)
	assert.Equal(t, "Telegram ile eklendi", appts[0].Content)
	assert.Equal(t, "✅ <b>Kayıt Eklendi!</b>\n👤 Mehmet\n📅 05.03.2025 Çarşamba", f.out.last().Text)
}

func TestAddCommandVariants(t *testing.T) {
	f := newFixture(t)
	f.say("/ekle Ali Veli 1-4-2025")
	appts := f.list(t)
	require.Len(t, appts, 1)
	assert.Equal(t, "Ali Veli", appts[0].Customer)
	assert.Equal(t, "2025-04-01", appts[0].Date)

	for _, bad := range []string{"/ekle", "/ekle Ali", "/ekle Ali 31.02.2025"} {
		f.say(bad)
		assert.Equal(t, txtAddUsage, f.out.last().Text, bad)
	}
	assert.Len(t, f.list(t), 1)
}

func TestCompleteCommand(t *testing.T) {
	f := newFixture(t)
	f.store.add(models.Appointment{Customer: "Ayşe Yılmaz", Date: "2025-03-01", Completed: true})
	id := f.store.add(models.Appointment{Customer: "Ayşe Kaya", Date: "2025-03-02"})
	f.store.add(models.Appointment{Customer: "Ayşe Demir", Date: "2025-03-03"})

	f.say("/tamamla ayşe")
	got, err := f.store.GetAppointment(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, got.Completed)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, "✅ <b>İşlem Tamamlandı:</b>\n👤 Ayşe Kaya", f.out.last().Text)

	f.say("/tamamla yılmaz")
	assert.Equal(t, "❌ <b>Bulunamadı</b> veya zaten tamamlanmış: \"yılmaz\"", f.out.last().Text)

	f.say("/tamamla")
	assert.Equal(t, txtDoneUsage, f.out.last().Text)
}

func TestSearchMatchesPlainLowercase(t *testing.T) {
	f := newFixture(t)
	f.store.add(models.Appointment{Customer: "IVAN PETROV", Date: "2025-03-05"})
	f.store.add(models.Appointment{Customer: "İlker", Date: "2025-03-05"})

	f.say("/bul ivan")
	require.Len(t, f.out.msgs, 2)
	assert.Contains(t, f.out.msgs[1].Text, "IVAN PETROV")

	f.out.reset()
	f.say("/bul ilker")
	require.Len(t, f.out.msgs, 2)
	assert.Contains(t, f.out.msgs[1].Text, "İlker")

	f.out.reset()
	f.say("/tamamla ivan")
	assert.Contains(t, f.out.last().Text, "IVAN PETROV")
}

func TestSearchCommandDoesNotChangeState(t *testing.T) {
	f := newFixture(t)
	f.store.add(models.Appointment{Customer: "Kemal", Content: "Kart Çekimi", Date: "2025-03-05"})

	f.say("/bul kart")
	assert.Equal(t, models.StateIdle, f.state())
	require.Len(t, f.out.msgs, 2)
	assert.Equal(t, txtSearchHead, f.out.msgs[0].Text)
	assert.Equal(t, "👤 <b>Kemal</b>\n📅 2025-03-05 - \n📝 Kart Çekimi\n⏳ Bekliyor", f.out.msgs[1].Text)

	f.say("/ara yok")
	assert.Equal(t, "🔍 \"<b>yok</b>\" için sonuç bulunamadı.", f.out.last().Text)
	assert.Equal(t, models.StateIdle, f.state())
}

func TestStatelessCommandWinsOverExpectedInput(t *testing.T) {
	f := newFixture(t)
	f.say("📅 Randevu Ekle")
	f.say("📊 Durum Raporu")

	assert.Equal(t, models.StateWaitingName, f.state())
	assert.Equal(t, "📈 <b>Rapor:</b>\n\nBugün: 0 Randevu\nToplam: 0 Kayıt", f.out.last().Text)
}

func TestAllPendingCapsAtFifty(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 53; i++ {
		f.store.add(models.Appointment{Customer: fmt.Sprintf("c%02d", i), Date: fmt.Sprintf("2025-03-%02d", 10+i/20), Time: fmt.Sprintf("%02d:%02d", 8+i/60, i%60)})
	}
	f.store.add(models.Appointment{Customer: "bitti", Date: "2025-03-01", Completed: true})

	f.say("/randevular")
	text := f.out.last().Text
	assert.True(t, strings.HasPrefix(text, "📅 <b>Tüm Bekleyen Randevular:</b>\n\n🔻 <b>10 Mart Pazartesi</b>\n   🕐 08:00 - c00\n"))
	assert.Equal(t, 50, strings.Count(text, "🕐"))
	assert.True(t, strings.HasSuffix(text, "\n... ve 3 kayıt daha."))
	assert.NotContains(t, text, "bitti")

	f2 := newFixture(t)
	f2.say("📅 Tüm Randevular")
	assert.Equal(t, txtAllNone, f2.out.last().Text)
}

func TestThisWeek(t *testing.T) {
	f := newFixture(t)
	f.store.add(models.Appointment{Customer: "Önceki", Date: "2025-03-02", Time: "09:00"})
	f.store.add(models.Appointment{Customer: "Pazartesi", Date: "2025-03-03", Time: "10:00"})
	f.store.add(models.Appointment{Customer: "Bitti", Date: "2025-03-04", Completed: true})
	f.store.add(models.Appointment{Customer: "Pazar", Date: "2025-03-09", Time: "11:00"})

	f.say("📅 Bu Hafta")
	assert.Equal(t, "📅 <b>Bu Hafta (2025-03-03 / 2025-03-09)</b>\n\n"+
		"<b>3 Mar Pazartesi</b>\n   🕐 10:00 - Pazartesi\n"+
		"<b>9 Mar Pazar</b>\n   🕐 11:00 - Pazar\n", f.out.last().Text)

	f2 := newFixture(t)
	f2.say("/buhafta")
	assert.Equal(t, txtWeekNone, f2.out.last().Text)
}

func TestCompletedList(t *testing.T) {
	f := newFixture(t)
	for i := 1; i <= 12; i++ {
		f.store.add(models.Appointment{Customer: fmt.Sprintf("c%02d", i), Content: "iş", Date: fmt.Sprintf("2025-02-%02d", i), Completed: true})
	}
	f.say("✅ Tamamlananlar")
	text := f.out.last().Text
	assert.True(t, strings.HasPrefix(text, txtDoneHead+"👤 c12\n   📅 2025-02-12 - iş\n\n"))
	assert.Equal(t, 10, strings.Count(text, "👤"))

	f2 := newFixture(t)
	f2.say("/tamamlananlar")
	assert.Equal(t, txtDoneNone, f2.out.last().Text)
}

func TestReportAndStickyNotes(t *testing.T) {
	f := newFixture(t)
	f.store.add(models.Appointment{Customer: "a", Date: "2025-03-05"})
	f.store.add(models.Appointment{Customer: "b", Date: "2025-03-05", Completed: true})
	f.store.add(models.Appointment{Customer: "c", Date: "2025-03-06"})

	f.say("/rapor")
	assert.Equal(t, "📈 <b>Rapor:</b>\n\nBugün: 2 Randevu\nToplam: 3 Kayıt", f.out.last().Text)

	f.say("/notlarim")
	assert.Equal(t, messages.NoStickyNotes, f.out.last().Text)

	f.store.notes = []models.StickyNote{{Title: "Liste", Blocks: []models.Block{{Type: models.BlockTodo, Content: "Ara"}}}}
	f.say("📝 Yapışkan Notlar")
	assert.Equal(t, "📝 <b>Yapışkan Notlarınız:</b>\n\n📌 <b>Liste</b>\n⬜ Ara\n\n", f.out.last().Text)
}

func TestDocumentCommands(t *testing.T) {
	f := newFixture(t)
	f.say("/takvim", "/yedek")
	assert.Equal(t, []messages.Kind{messages.KindCalendar, messages.KindBackup}, f.digests.kinds)
	assert.Empty(t, f.out.msgs)

	f.digests.err = messages.ErrNothingToSend
	f.say("/takvim")
	assert.Equal(t, txtAllNone, f.out.last().Text)
}

// ---------- callbacks ----------

func press(f *fixture, data string) {
	f.h.HandleCallback(context.Background(), cfg, chat, &tgbotapi.CallbackQuery{ID: "cb", Data: data})
}

func TestToggleCompleteTwice(t *testing.T) {
	f := newFixture(t)
	id := f.store.add(models.Appointment{Customer: "Ayşe", Date: "2025-03-05"})

	press(f, "complete_"+id)
	a, _ := f.store.GetAppointment(context.Background(), id)
	assert.True(t, a.Completed)
	require.NotNil(t, a.CompletedAt)
	assert.Equal(t, f.clk.Now(), *a.CompletedAt)
	assert.Equal(t, "✅ <b>İşlem Durumu Güncellendi</b>\n👤 Ayşe\nℹ️ Durum: Tamamlandı", f.out.last().Text)
	assert.Equal(t, chat, f.out.last().To)

	press(f, "complete_ "+id)
	a, _ = f.store.GetAppointment(context.Background(), id)
	assert.False(t, a.Completed)
	assert.Nil(t, a.CompletedAt)
	assert.Equal(t, "↩️ <b>İşlem Durumu Güncellendi</b>\n👤 Ayşe\nℹ️ Durum: Bekliyor", f.out.last().Text)

	assert.Equal(t, []toast{{"cb", "İş Tamamlandı!"}, {"cb", "Geri Alındı"}}, f.out.toasts)
}

func TestDeleteCallback(t *testing.T) {
	f := newFixture(t)
	id := f.store.add(models.Appointment{Customer: "Ali", Date: "2025-03-05"})

	press(f, "delete_"+id)
	assert.Empty(t, f.list(t))
	assert.Equal(t, "🗑️ <b>Kayıt Silindi</b>\n👤 Ali", f.out.last().Text)

	press(f, "delete_"+id)
	assert.Equal(t, []toast{{"cb", "Kayıt Silindi"}, {"cb", "Kayıt bulunamadı"}}, f.out.toasts)
	assert.Len(t, f.out.msgs, 1)
}

func TestUnknownCallbackIsOnlyAcknowledged(t *testing.T) {
	f := newFixture(t)
	id := f.store.add(models.Appointment{Customer: "Ali", Date: "2025-03-05"})

	press(f, "archive_"+id)
	press(f, "garbage")

	assert.Empty(t, f.out.msgs)
	assert.Equal(t, []toast{{"cb", ""}, {"cb", ""}}, f.out.toasts)
	a, _ := f.store.GetAppointment(context.Background(), id)
	assert.False(t, a.Completed)
}

// ---------- sessions ----------

func TestConversationsEvictLeastRecent(t *testing.T) {
	conv := NewConversations(2, time.Hour, zap.NewNop().Sugar(), nil)
	ctx := context.Background()

	require.NoError(t, conv.session("a").fire(ctx, evAdd))
	require.NoError(t, conv.session("b").fire(ctx, evAdd))
	conv.session("a")
	conv.session("c")

	assert.Equal(t, 2, conv.Len())
	assert.Equal(t, models.StateWaitingName, conv.State("a"))
	assert.Equal(t, models.StateIdle, conv.State("b"))
}

func TestConversationsExpireIdleSenders(t *testing.T) {
	conv := NewConversations(10, 20*time.Millisecond, zap.NewNop().Sugar(), nil)
	require.NoError(t, conv.session("a").fire(context.Background(), evAdd))
	assert.Equal(t, models.StateWaitingName, conv.State("a"))

	assert.Eventually(t, func() bool {
		return conv.State("a") == models.StateIdle
	}, time.Second, 10*time.Millisecond)
}

func TestSessionRejectsInvalidEvent(t *testing.T) {
	s := newSession()
	assert.Error(t, s.fire(context.Background(), evSave))
	assert.NoError(t, s.fire(context.Background(), evReset))
	assert.Equal(t, models.StateIdle, s.state())
}
