package service

const (
	welcomeText = "🎬 <b>Бот публикации фильмов</b>\n\n" +
		"Отправьте <b>постер</b> фильма: фото или изображение файлом."
	cancelText = "❌ Действие отменено.\nОтправьте <b>постер</b>, чтобы начать заново."
	helpText   = "📖 <b>Как это работает</b>\n\n" +
		"1. Отправьте постер фильма.\n" +
		"2. Отправьте название.\n" +
		"3. Отправьте ссылку для скачивания.\n" +
		"4. ИИ подготовит описание и покажет превью.\n" +
		"5. Опубликуйте сразу или запланируйте публикацию.\n\n" +
		"/start - начать заново\n/cancel - отменить текущий пост\n/help - эта справка"
	unknownCommandText = "Неизвестная команда. Введите /help для просмотра доступных команд."

	photoAcceptedText = "✅ Изображение получено.\nОтправьте <b>название фильма</b>."
	photoRequiredText = "❌ Пожалуйста, отправьте <b>изображение</b>."
	nameAcceptedText  = "✅ Название сохранено.\nОтправьте <b>ссылку для скачивания</b>."
	nameRequiredText  = "✏️ Отправьте название фильма текстом."
	captionStartText  = "👀 <b>ИИ анализирует постер</b>\nИщу актеров и рейтинг..."
	linkRequiredText  = "🔗 Отправьте ссылку для скачивания текстом."

	scheduleAskText      = "⏳ <b>Планирование</b>\nЧерез сколько минут опубликовать? Например, 60:"
	scheduledText        = "✅ <b>Запланировано.</b> Публикация через %d мин."
	invalidMinutesText   = "⚠️ Некорректное число. Введите количество минут больше нуля, например 60."
	tooManyMinutesText   = "⚠️ Максимальный срок - %d минут (один год)."
	captionNotReadyText  = "⚠️ Описание еще не готово. Дождитесь превью."
	postedText           = "✅ <b>Опубликовано!</b>"
	postFailedText       = "❌ <b>Не удалось опубликовать.</b> Проверьте ID канала.\n%s"
	imageDownloadErrText = "⚠️ Не удалось скачать изображение из Telegram.\n" +
		"Отправьте ссылку еще раз или начните заново: /start"
	captionErrText = "⚠️ <b>Ошибка ИИ:</b> %s\nОтправьте ссылку еще раз, чтобы повторить."
	errorText      = "⚠️ Ошибка: %s"
)
