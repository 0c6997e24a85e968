package settings

const DefaultOrderTemplate = "🆕 New order #{order_reference}\n" +
	"🏪 Shop: {shop_name}\n" +
	"👤 Customer: {customer_name}\n" +
	"📧 Email: {customer_email}\n" +
	"🌐 IP: {ip_address}\n" +
	"🏳️ Country: {country}\n" +
	"🕒 Date/Time: {date_time} (Server time)\n" +
	"📞 Phone: {phone_number}\n" +
	"💰 Amount: {total_paid}\n" +
	"🏠 Shipping address:\n{shipping_address}\n" +
	"📦 Delivery method: {delivery_method}\n" +
	"💳 Payment method: {payment_method}\n" +
	"🛍️ Products:\n{products_list}\n" +
	"📝 Comment: {order_comment}"

const DefaultAdminLoginTemplate = "🔐 Admin Login Alert\n" +
	"👤 Employee: {employee_name}\n" +
	"📧 Email: {employee_email}\n" +
	"🌐 IP Address: {ip_address}\n" +
	"🏳️ Country: {country}\n" +
	"🕒 Date/Time: {date_time} (Server time)\n" +
	"⚠️ If you don't recognize this login, change your password immediately!"

const DefaultNewCustomerTemplate = "🆕 New Customer Registration\n" +
	"👤 Customer: {customer_name}\n" +
	"📧 Email: {customer_email}\n" +
	"🌐 IP: {ip_address}\n" +
	"🏳️ Country: {country}\n" +
	"🕒 Date/Time: {date_time} (Server time)\n" +
	"🎂 Birthday: {birthday}\n" +
	"👫 Gender: {gender}\n" +
	"📰 Subscribed to newsletter: {newsletter}"
