package server

// RegisterRoutes wires the versioned API surface. Every route runs behind
// the request-id and API-key middlewares; mutating routes additionally
// require a secret key.
func (s *Server) RegisterRoutes() {
	v1 := s.gin.Group("/v1")
	v1.Use(s.requestIDMiddleware())
	v1.Use(s.apiKeyMiddleware())

	// Tokens are the one surface publishable keys may create.
	v1.POST("/tokens", s.createToken)
	v1.GET("/tokens/:id", s.retrieveToken)

	admin := v1.Group("")
	admin.Use(s.requireAdmin())

	admin.POST("/plans", s.createPlan)
	admin.GET("/plans/:id", s.retrievePlan)
	admin.POST("/plans/:id", s.updatePlan)
	admin.DELETE("/plans/:id", s.deletePlan)
	admin.GET("/plans", s.listPlans)

	admin.POST("/products", s.createProduct)
	admin.GET("/products/:id", s.retrieveProduct)
	admin.GET("/products", s.listProducts)

	admin.POST("/coupons", s.createCoupon)
	admin.GET("/coupons/:id", s.retrieveCoupon)
	admin.DELETE("/coupons/:id", s.deleteCoupon)
	admin.GET("/coupons", s.listCoupons)

	admin.POST("/customers", s.createCustomer)
	admin.GET("/customers/:id", s.retrieveCustomer)
	admin.POST("/customers/:id", s.updateCustomer)
	admin.DELETE("/customers/:id", s.deleteCustomer)
	admin.GET("/customers", s.listCustomers)
	admin.DELETE("/customers/:id/discount", s.deleteCustomerDiscount)
	admin.GET("/customers/:id/subscriptions", s.listCustomerSubscriptions)

	admin.POST("/payment_methods", s.createPaymentMethod)
	admin.GET("/payment_methods/:id", s.retrievePaymentMethod)
	admin.POST("/payment_methods/:id", s.updatePaymentMethod)
	admin.POST("/payment_methods/:id/attach", s.attachPaymentMethod)
	admin.POST("/payment_methods/:id/detach", s.detachPaymentMethod)
	admin.GET("/payment_methods", s.listPaymentMethods)

	admin.POST("/subscriptions", s.createSubscription)
	admin.GET("/subscriptions/:id", s.retrieveSubscription)
	admin.POST("/subscriptions/:id", s.updateSubscription)
	admin.DELETE("/subscriptions/:id", s.cancelSubscription)
	admin.GET("/subscriptions", s.listSubscriptions)
	admin.DELETE("/subscriptions/:id/discount", s.deleteSubscriptionDiscount)

	admin.POST("/invoiceitems", s.createInvoiceItem)
	admin.GET("/invoiceitems/:id", s.retrieveInvoiceItem)
	admin.POST("/invoiceitems/:id", s.updateInvoiceItem)
	admin.DELETE("/invoiceitems/:id", s.deleteInvoiceItem)
	admin.GET("/invoiceitems", s.listInvoiceItems)

	admin.GET("/invoices/upcoming", s.upcomingInvoice)
	admin.POST("/invoices", s.createInvoice)
	admin.GET("/invoices/:id", s.retrieveInvoice)
	admin.POST("/invoices/:id/pay", s.payInvoice)
	admin.GET("/invoices", s.listInvoices)

	admin.POST("/charges", s.createCharge)
	admin.GET("/charges/:id", s.retrieveCharge)
	admin.GET("/charges", s.listCharges)

	admin.GET("/events/:id", s.retrieveEvent)
	admin.GET("/events", s.listEvents)

	admin.POST("/webhook_endpoints", s.createWebhookEndpoint)
	admin.GET("/webhook_endpoints/:id", s.retrieveWebhookEndpoint)
	admin.DELETE("/webhook_endpoints/:id", s.deleteWebhookEndpoint)
	admin.GET("/webhook_endpoints", s.listWebhookEndpoints)
}
