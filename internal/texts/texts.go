// Package texts holds every user-facing string the bot sends.
package texts

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	Welcome        = "Добро пожаловать в MKch Pay!\nВыбери товар для покупки благодаря Telegram Stars:"
	Help           = "*MKch Pay*\n\nКоманды:\n/start \\- Посмотреть товары\n/help \\- Справка\n\nКак использовать:\n1\\. /start \\- посмотреть товары\n2\\. Выбрать товар\n3\\. Оплатить звездами"
	AdminHelp      = "⚙️ Админ-панель\n\nДоступные команды:\n/setprice [цена] - Изменить мин. цену PASSCODE (от 1 ⭐)\n/autodelivery [on|off] - Вкл/выкл автовыдачу\n/addadmin [id] - Добавить админа\n/removeadmin [id] - Удалить админа\n/listadmins - Список админов\n/codes - Остаток кодов\n/stats - Статистика продаж"
	AdminOnly      = "❌ Только для администраторов"
	InvalidCommand = "❌ Неверная команда"
	MinPriceError  = "❌ Минимальная цена должна быть не менее 1 ⭐"
	AdminExists    = "⚠️ Админ уже существует"
	AdminNotFound  = "⚠️ Админ не найден"
	LastAdmin      = "⚠️ Нельзя удалить последнего администратора"
	NoAdmins       = "👥 Администраторов нет"
	NoCodes        = "⚠️ Закончились коды! Обратитесь к администратору."
	Cancelled      = "Операция отменена."
	RequestFailed  = "Ошибка обработки запроса"
	PaymentFailed  = "⚠️ Не удалось выдать покупку. Обратитесь к администратору."
	UnknownItem    = "❌ Товар не найден"
	ThanksPrefix   = "Спасибо за покупку! 🎉"
	PreCheckoutBad = "Товар не найден"
	SettingsFailed = "⚠️ Не удалось сохранить настройки"
)

func EnterAmount(minPrice int) string {
	return fmt.Sprintf("Введите сумму оплаты (не менее %d ⭐ + можете добавить свое кол-во для поддержки):", minPrice)
}

func InvalidAmount(minPrice int) string {
	return fmt.Sprintf("❌ Неверная сумма! Минимум %d ⭐.", minPrice)
}

func PriceUpdated(price int) string {
	return fmt.Sprintf("✅ Минимальная цена PASSCODE обновлена: %d ⭐", price)
}

func DeliveryStatus(on bool) string {
	if on {
		return "✅ Автовыдача включена"
	}
	return "✅ Автовыдача выключена"
}

func AdminAdded(id int64) string {
	return fmt.Sprintf("✅ Админ добавлен: %d", id)
}

func AdminRemoved(id int64) string {
	return fmt.Sprintf("✅ Админ удален: %d", id)
}

func AdminList(ids []int64) string {
	lines := make([]string, len(ids))
	for i, id := range ids {
		lines[i] = strconv.FormatInt(id, 10)
	}
	return "👥 Администраторы:\n" + strings.Join(lines, "\n")
}

func Stats(total int64, unique int) string {
	return fmt.Sprintf("📊 Статистика:\nВсего покупок: %d\nУникальных покупателей: %d", total, unique)
}

func CodesLeft(n int) string {
	return fmt.Sprintf("🔑 Осталось кодов: %d", n)
}

func InvoiceTitle(name string, amount int) string {
	return fmt.Sprintf("%s (%d ⭐)", name, amount)
}
