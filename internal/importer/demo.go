package importer

// DemoRows is a small payroll batch with the kinds of problems the review
// workflow exists for: titles and casing in names, currency prefixes, bank
// name variants, day-first dates, repeat payments, and missing fields.
func DemoRows() []map[string]string {
	return []map[string]string{
		{
			"id":            "TXN001",
			"name":          "mr. ali ahmad",
			"amount":        "rm 5,000",
			"bank":          "maybank",
			"accountNumber": "1234-5678-9012",
			"date":          "2024-03-15",
			"phone":         "+60123456789",
		},
		{
			"id":            "TXN002",
			"name":          "Tenaga Nasional",
			"amount":        "500.00",
			"bank":          "CIMB",
			"accountNumber": "800-111-222",
			"date":          "2024-03-15",
			"phone":         "+60198765432",
		},
		{
			"id":            "TXN003",
			"name":          "TechCorp Sdn Bhd",
			"amount":        "5500.00",
			"bank":          "PBB",
			"accountNumber": "9876-5432-1098",
			"date":          "2024-03-15",
			"phone":         "",
		},
		{
			"id":            "TXN004",
			"name":          "Jane Doe",
			"amount":        "2300.00",
			"bank":          "",
			"accountNumber": "5555-6666-7777",
			"date":          "2024-03-15",
			"phone":         "+60112345678",
		},
		{
			"id":            "TXN005",
			"name":          "Clean Data Co",
			"amount":        "1200.00",
			"bank":          "RHB",
			"accountNumber": "1111-2222-3333",
			"date":          "2024-03-15",
			"phone":         "",
		},
		{
			"id":            "TXN006",
			"name":          "sarah lee",
			"amount":        "RM 3,500",
			"bank":          "public bank",
			"accountNumber": "7777888899990000",
			"date":          "15-03-2024",
			"phone":         "+60187654321",
		},
		{
			"id":            "TXN007",
			"name":          "EVIL CORP SDN BHD",
			"amount":        "1000000.00",
			"bank":          "MBB",
			"accountNumber": "999-999-999",
			"date":          "2024-03-15",
			"phone":         "",
		},
		{
			"id":            "TXN008",
			"name":          "Ahmad bin Hassan",
			"amount":        "2400.00",
			"bank":          "CIMB",
			"accountNumber": "155-200-300",
			"date":          "2024-03-15",
			"phone":         "",
		},
		{
			"id":            "TXN009",
			"name":          "Verified Corp",
			"amount":        "8500.00",
			"bank":          "HLB",
			"accountNumber": "4444-3333-2222",
			"date":          "2024-03-15",
			"phone":         "",
		},
		{
			"id":            "TXN010",
			"name":          "",
			"amount":        "750.00",
			"bank":          "AMB",
			"accountNumber": "6666-5555-4444",
			"date":          "2024-03-15",
			"phone":         "+60176543210",
		},
	}
}
