package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback payloads. The rate-event payload carries the event id and vibe:
// "rate_event_{id}_{vibe}".
const (
	cbOnboardingStart      = "onboarding_start"
	cbCalendarConnect      = "calendar_connect"
	cbCalendarSkip         = "calendar_skip"
	cbPlanAccept           = "plan_accept"
	cbPlanEdit             = "plan_edit"
	cbDialogCancel         = "dialog_cancel"
	cbCommandPlan          = "command_plan"
	cbCommandCheckCalendar = "command_check_calendar"

	prefixEnergyRating = "energy_rating_"
	prefixRateEvent    = "rate_event_"
)

const (
	textWelcomeBack = "С возвращением! Напиши /plan, чтобы собрать план на день, или /energy для быстрого чека энергии."

	textAskTimezone = "Отлично! Укажи, пожалуйста, твой город или часовой пояс в формате UTC+X (например, UTC+3)."

	textTimezoneRetry = "Не смог распознать часовой пояс. Напиши город или смещение в формате UTC+X (например, UTC+3)."

	textCalendarOffer = "Таймзона сохранена! Хочешь подключить Google Календарь? Тогда я смогу учитывать твое расписание при планировании."

	textConnectCalendar = "Чтобы я мог анализировать твое расписание, пожалуйста, предоставь доступ к своему Google Календарю."

	textOnboardingDone = "Готово, настройка завершена! Кстати, можешь прислать данные о сне и шаговой активности за последние 2 дня в свободной форме — пришлю инсайты. Например: 'Позавчера спал 6ч, прошел 5000 шагов. Вчера 8ч, 10000 шагов'."

	textRetroRetry = "Спасибо! Чтобы я мог сделать выводы, опиши свой сон и активность за последние пару дней."

	textAskSleepHours = "Понял. А сколько примерно часов ты спал(а) сегодня?"

	textAskMorningPlans = "Отлично. Чем сегодня займёмся? Назови 1–3 обязательных дела."

	textNoTasksRetry = "Похоже, в сообщении нет конкретных задач. Попробуй перечислить 1-3 дела, которые хочешь сегодня выполнить."

	textAskSchedule = "Пришли фото расписания или напиши 1–3 главные задачи — соберу план."

	textPlanWorking = "Принял! Сверяюсь с твоим календарем и составляю лучший план на день. Секунду..."

	textPlanAccepted = "Отлично! План принят и сохранен. Я буду рядом, чтобы помочь тебе в течение дня. 😉"

	textPlanEdit = "Хорошо, давай скорректируем. Напиши, что бы ты хотел изменить, или просто пришли новый список задач."

	textEnergyPrompt = "Быстрый чек: как ты сейчас по шкале от 1 до 10?"

	textPhotoRedirect = "Спасибо за фото! Если хочешь, чтобы я составил по нему план, сначала используй команду /plan."

	textPhotoWorking = "Получил фото! Отправил на распознавание... 🤖"

	textPhotoNoSchedule = "Похоже, на этом фото нет расписания. Попробуй сфотографировать свой календарь или список дел."

	textCalendarNotConnected = "Твой Google Календарь еще не подключен. Сначала используй команду /connect_calendar."

	textCalendarChecking = "🔍 Запрашиваю ближайшие события из твоего календаря..."

	textCalendarEmpty = "✅ В твоем календаре нет предстоящих событий."

	textCalendarError = "❌ Не получилось прочитать твой календарь. Возможно, его нужно переподключить командой /connect_calendar."

	textEveningNoEvents = "Похоже, сегодня в календаре не было событий. Как прошел твой день в целом? Оцени, пожалуйста, свою энергию от 1 до 10."

	textEveningDone = "Спасибо! Все итоги дня подведены. Отличного вечера!"

	textEveningThanks = "Спасибо, записал! Отличного вечера!"

	textCancelled = "Хорошо, отменил. Возвращайся, когда будешь готов — /plan всегда под рукой."

	textUseButtons = "Нажми, пожалуйста, одну из кнопок выше, чтобы продолжить."

	textButtonExpired = "Эта кнопка уже неактивна"

	textUnknownInput = "Извини, я пока не знаю, как на это ответить."

	textHelp = "Я не совсем понял, что ты имеешь в виду. Можешь попросить меня составить план, проверить календарь или оценить энергию."

	textAbout = "Я помогаю планировать день с учетом твоей энергии: утренний и вечерний чекапы, планы по расписанию и инсайты. Команды: /plan, /energy, /connect_calendar, /check_calendar."

	textGeneralChatFallback = "Я здесь, чтобы помочь тебе с планированием и энергией. Давай сосредоточимся на этом!"

	textApology = "Что-то пошло не так. Попробуй, пожалуйста, еще раз."

	textTranscribeFailed = "Не получилось распознать голосовое сообщение. Попробуй, пожалуйста, написать текстом."

	textCalendarConnected = "Отлично, твой Google Calendar успешно подключен! 🎉\n\nТеперь я вижу твое расписание и могу помогать с планированием."
)

func welcomeText(firstName string) string {
	if firstName == "" {
		firstName = "Привет"
	}
	return fmt.Sprintf("%s! Я помогу спланировать день так, чтобы энергии хватало на важное и ты не выгорал. Давай за 30 секунд настроим часовой пояс и напоминания.", firstName)
}

func morningGreeting(firstName string) string {
	if firstName == "" {
		return "Доброе утро! Скан энергии — от 1 до 10: как ты сейчас?"
	}
	return fmt.Sprintf("Доброе утро, %s! Скан энергии — от 1 до 10: как ты сейчас?", firstName)
}

func eveningFirstEventQuestion(summary string) string {
	return fmt.Sprintf("Давай подведем итоги дня. Как ты оценишь событие %q?", summary)
}

func eveningNextEventQuestion(summary string) string {
	return fmt.Sprintf("Отлично. А как насчет %q?", summary)
}

func recognizedScheduleText(recognized string) string {
	return fmt.Sprintf("Вот что я смог разобрать:\n\n%s\n\nИспользуем эти данные для плана? Можешь скопировать, отредактировать и отправить мне исправленный вариант.", recognized)
}

func onboardingStartKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("OK, поехали", cbOnboardingStart),
		),
	)
}

func calendarOfferKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📅 Подключить", cbCalendarConnect),
			tgbotapi.NewInlineKeyboardButtonData("Пропустить", cbCalendarSkip),
		),
	)
}

func authURLKeyboard(url string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("Подключить Google Calendar", url),
		),
	)
}

func energyKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("1-3 (Низкая)", prefixEnergyRating+"low"),
			tgbotapi.NewInlineKeyboardButtonData("4-6 (Средняя)", prefixEnergyRating+"medium"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("7-8 (Высокая)", prefixEnergyRating+"high"),
			tgbotapi.NewInlineKeyboardButtonData("9-10 (Супер!)", prefixEnergyRating+"very_high"),
		),
	)
}

func planKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Принять план 👍", cbPlanAccept),
			tgbotapi.NewInlineKeyboardButtonData("Править ✏️", cbPlanEdit),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Отмена", cbDialogCancel),
		),
	)
}

func vibeKeyboard(eventID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⚡️ Заряжает", fmt.Sprintf("%s%s_Energize", prefixRateEvent, eventID)),
			tgbotapi.NewInlineKeyboardButtonData("😐 Нейтрально", fmt.Sprintf("%s%s_Neutral", prefixRateEvent, eventID)),
			tgbotapi.NewInlineKeyboardButtonData("🪫 Утомляет", fmt.Sprintf("%s%s_Drain", prefixRateEvent, eventID)),
		),
	)
}

func postAuthKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔍 Проверить календарь", cbCommandCheckCalendar),
			tgbotapi.NewInlineKeyboardButtonData("📝 Составить план", cbCommandPlan),
		),
	)
}
