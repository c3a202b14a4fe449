package scenario

import "github.com/koscakluka/ema-ordersim/internal/utils"

// Samples returns the built-in warung dialogues used to seed speech synthesis.
func Samples() *Set {
	set := NewSet()
	set.Add("simple_order", []Message{
		seller("msg-1", "Good morning! Welcome to our warung. What would you like to order today?"),
		customer("msg-2", "Hi! I'd like two nasi goreng and one es teh manis please."),
		withAction(seller("msg-3", "Perfect! I've added two nasi goreng at fifteen dollars each, and one es teh manis at five dollars. Would you like anything else?"),
			ActionAdd, item("Nasi Goreng", 2, 15), item("Es Teh Manis", 1, 5)),
		customer("msg-4", "No, that's everything. Thank you!"),
		seller("msg-5", "Wonderful! Your total comes to thirty five dollars."),
		customer("msg-6", "Here's forty dollars cash."),
		withPayment(seller("msg-7", "Payment received! Your change is five dollars. Order complete! Have a great day!"), 40, 5),
	})
	set.Add("negotiation", []Message{
		seller("msg-1", "Hello! Welcome back. What can I prepare for you?"),
		customer("msg-2", "I want three portions of sate ayam, please."),
		seller("msg-3", "Sate ayam, excellent choice! I don't have a price set for that item yet. What price would you suggest?"),
		customer("msg-4", "How about eight dollars per portion?"),
		withAction(seller("msg-5", "Eight dollars sounds fair! I've added three sate ayam at eight dollars each. That's twenty four dollars total. Anything else?"),
			ActionAdd, item("Sate Ayam", 3, 8)),
		customer("msg-6", "Yes, add two es kopi susu."),
		seller("msg-7", "Es kopi susu, great! I need a price for that as well. What would be reasonable?"),
		customer("msg-8", "Let's say four fifty each."),
		withAction(seller("msg-9", "Perfect! Added two es kopi susu at four fifty each. Your new total is thirty three dollars. Anything more?"),
			ActionAdd, item("Es Kopi Susu", 2, 4.5)),
		customer("msg-10", "That's all, thanks!"),
		seller("msg-11", "Excellent! Your final total is thirty three dollars."),
		customer("msg-12", "Here's forty dollars cash."),
		withPayment(seller("msg-13", "Payment received! Your change is seven dollars. Order complete! Thank you and see you again!"), 40, 7),
	})
	set.Add("complex_order", []Message{
		seller("msg-1", "Good afternoon! Ready to take your order. What would you like?"),
		customer("msg-2", "I need five nasi goreng, three ayam goreng, and two soto ayam."),
		withAction(seller("msg-3", "Got it! I've added five nasi goreng at fifteen dollars each, three ayam goreng at twelve dollars each, and two soto ayam at ten dollars each. Anything else?"),
			ActionAdd, item("Nasi Goreng", 5, 15), item("Ayam Goreng", 3, 12), item("Soto Ayam", 2, 10)),
		customer("msg-4", "Actually, make the nasi goreng just three portions instead."),
		withAction(seller("msg-5", "No problem! Updated nasi goreng to three portions. Your current total is one hundred one dollars."),
			ActionUpdate, item("Nasi Goreng", 3, 15)),
		customer("msg-6", "And add four jus mangga please."),
		withAction(seller("msg-7", "Excellent! I've added four jus mangga at five dollars each. Your total is now one hundred twenty one dollars. Anything more?"),
			ActionAdd, item("Jus Mangga", 4, 5)),
		customer("msg-8", "Can you also add two kerupuk? How much are those?"),
		seller("msg-9", "I don't have a price for kerupuk yet. What would you like to pay for them?"),
		customer("msg-10", "Two dollars each is fine."),
		withAction(seller("msg-11", "Perfect! Added two kerupuk at two dollars each. Your final total is one hundred twenty five dollars. That's everything?"),
			ActionAdd, item("Kerupuk", 2, 2)),
		customer("msg-12", "Yes, that's all. Thank you!"),
		seller("msg-13", "Wonderful! One hundred twenty five dollars total."),
		customer("msg-14", "Here's one hundred fifty dollars cash."),
		withPayment(seller("msg-15", "Payment received! Your change is twenty five dollars. Order complete! Thank you for visiting!"), 150, 25),
	})
	return set
}

func seller(id, text string) Message   { return Message{ID: id, Role: RoleSeller, Text: text} }
func customer(id, text string) Message { return Message{ID: id, Role: RoleCustomer, Text: text} }

func item(name string, quantity, price float64) OrderItem {
	return OrderItem{Name: utils.Ptr(name), Quantity: utils.Ptr(quantity), Price: utils.Ptr(price)}
}

func withAction(msg Message, actionType ActionType, items ...OrderItem) Message {
	msg.OrderAction = &OrderAction{Type: actionType, Items: items}
	return msg
}

func withPayment(msg Message, amount, change float64) Message {
	msg.PaymentReceived = &Payment{
		Amount: utils.Ptr(amount),
		Change: utils.Ptr(change),
		Method: utils.Ptr("CASH"),
	}
	return msg
}
