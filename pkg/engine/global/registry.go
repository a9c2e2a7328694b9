package global

// PII levels, scanned in this order; the first matching level wins
var piiLevels = []piiLevel{
	{
		Level: "high",
		Keywords: []string{
			"national_id", "passport", "passport_no", "ssn", "pan_number",
			"citizenship_no", "nid", "tax_id", "government_id", "govid",
			"diagnosis", "condition", "icd_code", "illness", "disease",
			"medical", "bank_account", "account_number", "card_number",
			"credit_card", "debit_card",
		},
		Label:      "High — Restricted",
		Governance: "Export restricted. Encryption recommended.",
	},
	{
		Level: "medium",
		Keywords: []string{
			"name", "full_name", "first_name", "last_name", "middle_name",
			"fname", "lname", "surname",
			"email", "email_address", "mail",
			"phone", "mobile", "contact", "tel", "cell",
			"address", "full_address", "residential_address",
			"dob", "date_of_birth", "birth_date", "birthdate",
			"gender", "sex",
			"ethnicity", "race", "nationality",
			"marital_status", "civil_status",
			"blood_group", "blood_type",
		},
		Label:      "Medium — Personal",
		Governance: "PII tag applied. Included in privacy report.",
	},
	{
		Level: "low",
		Keywords: []string{
			"city", "district", "region", "province", "state",
			"country", "job_title", "designation", "position", "role",
			"department", "dept", "division",
			"education", "qualification", "degree",
		},
		Label:      "Low — Contextual",
		Governance: "Individually non-sensitive; may be sensitive in combination.",
	},
}

type piiLevel struct {
	Level      string
	Keywords   []string
	Label      string
	Governance string
}

// columnWordCorrections fixes misspelled tokens in column names
var columnWordCorrections = map[string]string{
	"fule": "fuel", "fuell": "fuel", "feul": "fuel",
	"distace": "distance", "distanse": "distance", "distnce": "distance",
	"paymnt": "payment", "paymet": "payment", "payement": "payment",
	"naem": "name", "nane": "name",
	"adress": "address", "addres": "address", "adres": "address",
	"emial": "email", "emaail": "email",
	"phoen": "phone", "phohe": "phone",
	"geder": "gender", "gneder": "gender",
	"datte": "date", "dat": "date",
	"mounth": "month", "mnth": "month",
	"yeer": "year", "yaer": "year",
	"totla": "total", "toal": "total",
	"ammount": "amount", "amont": "amount",
	"quntity": "quantity", "quantty": "quantity", "qunatity": "quantity",
	"prise": "price", "prce": "price",
	"staus": "status", "satatus": "status",
	"cateogry": "category", "catgory": "category",
	"descripion": "description", "desciption": "description",
	"employe": "employee", "emploee": "employee",
	"stuednt": "student", "studnet": "student",
	"recrod": "record", "recoed": "record",
	"numbr": "number", "numbeer": "number",
	"regsitration": "registration", "reigstration": "registration",
}

// summaryRowKeywords mark a row as a total/summary row
var summaryRowKeywords = map[string]struct{}{
	"total": {}, "grand total": {}, "subtotal": {}, "sub total": {}, "sum": {},
	"average": {}, "avg": {}, "mean": {}, "overall": {}, "summary": {},
	"net total": {}, "gross total": {}, "count total": {},
}

// encodingFixes maps UTF-8 text that was decoded as Latin-1 back to the
// intended characters
var encodingFixes = []struct{ bad, good string }{
	{"â\u0080\u0099", "’"},
	{"â\u0080\u009c", "“"},
	{"â\u0080\u009d", "”"},
	{"â\u0080\u0098", "‘"},
	{"â\u0080\u0093", "–"},
	{"â\u0080\u0094", "—"},
	{"â\u0080¦", "…"},
	{"Ã©", "é"},
	{"Ã¨", "è"},
	{"Ãª", "ê"},
	{"Ã«", "ë"},
	{"Ã³", "ó"},
	{"Ãº", "ú"},
	{"Ã¼", "ü"},
	{"Ã¤", "ä"},
	{"Ã¶", "ö"},
	{"Ã\u009f", "ß"},
}

var booleanWords = map[string]struct{}{
	"true": {}, "false": {}, "yes": {}, "no": {}, "1": {}, "0": {},
}

// typeOrder is the tie-break order for dominant type inference
var typeOrder = []string{"integer", "float", "date", "boolean", "string"}
