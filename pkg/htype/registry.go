package htype

import "github.com/David-Botos/data-refinery/pkg/model"

// registry holds every semantic type in lookup order. The order matters:
// when a keyword belongs to several types the first registration wins.
var registry = []Type{
	{
		Code:        "HTYPE-001",
		Name:        "Full Name",
		FormulaSet:  "FNAME",
		Keywords:    []string{"full_name", "fullname", "name", "student_name", "patient_name", "employee_name", "customer_name", "client_name", "person_name", "applicant_name", "candidate_name", "member_name"},
		Excludes:    []string{"first_name", "last_name", "middle_name", "fname", "lname", "product_name", "item_name", "company_name", "file_name", "org_name", "organization_name", "column_name", "table_name"},
		PII:         true,
		Sensitivity: model.SensitivityMedium,
	},
	{
		Code:        "HTYPE-002",
		Name:        "First/Last/Middle Name",
		FormulaSet:  "SNAME",
		Keywords:    []string{"first_name", "fname", "firstname", "given_name", "last_name", "lname", "lastname", "surname", "family_name", "middle_name", "middlename", "mname", "maiden_name"},
		PII:         true,
		Sensitivity: model.SensitivityMedium,
	},
	{
		Code:        "HTYPE-003",
		Name:        "Unique ID / Record ID",
		FormulaSet:  "UID",
		Keywords:    []string{"id", "student_id", "record_id", "emp_id", "employee_id", "case_no", "case_id", "patient_id", "user_id", "customer_id", "order_id", "transaction_id", "record_no", "registration_no", "roll_no", "roll_number", "admission_no", "account_id", "member_id", "client_id", "applicant_id"},
		Excludes:    []string{"national_id", "passport", "ssn", "pan", "citizenship"},
		PII:         false,
		Sensitivity: model.SensitivityLow,
	},
	{
		Code:        "HTYPE-007",
		Name:        "Age",
		FormulaSet:  "AGE",
		Keywords:    []string{"age", "patient_age", "years", "age_years", "age_in_years", "current_age", "employee_age", "student_age"},
		PII:         false,
		Sensitivity: model.SensitivityLow,
	},
	{
		Code:        "HTYPE-008",
		Name:        "Gender / Sex",
		FormulaSet:  "GEN",
		Keywords:    []string{"gender", "sex", "male_female", "m_f"},
		PII:         true,
		Sensitivity: model.SensitivityMedium,
	},
	{
		Code:        "HTYPE-029",
		Name:        "National ID / Passport / Government ID",
		FormulaSet:  "GOVID",
		Keywords:    []string{"passport_no", "passport_number", "passport", "national_id", "pan_number", "pan", "ssn", "social_security", "citizenship_no", "citizenship", "drivers_license", "license_no", "voter_id", "aadhaar", "nid", "national_identity"},
		PII:         true,
		Sensitivity: model.SensitivityHigh,
	},
	{
		Code:        "HTYPE-030",
		Name:        "Blood Group",
		FormulaSet:  "BLOOD",
		Keywords:    []string{"blood_group", "blood_type", "bloodgroup", "bloodtype", "rh_factor", "blood"},
		PII:         true,
		Sensitivity: model.SensitivityMedium,
	},
	{
		Code:        "HTYPE-038",
		Name:        "Language / Nationality / Ethnicity",
		FormulaSet:  "CULT",
		Keywords:    []string{"language", "nationality", "ethnicity", "mother_tongue", "native_language", "ethnic_group", "race", "country_of_origin"},
		PII:         true,
		Sensitivity: model.SensitivityHigh,
	},
	{
		Code:        "HTYPE-039",
		Name:        "Education Level / Qualification",
		FormulaSet:  "EDU",
		Keywords:    []string{"qualification", "education", "degree", "education_level", "highest_education", "educational_qualification", "academic_level", "school_level", "grade_level"},
		PII:         false,
		Sensitivity: model.SensitivityLow,
	},
	{
		Code:        "HTYPE-040",
		Name:        "Marital Status",
		FormulaSet:  "MAR",
		Keywords:    []string{"marital_status", "civil_status", "relationship_status", "married", "marriage_status"},
		PII:         true,
		Sensitivity: model.SensitivityMedium,
	},
	{
		Code:        "HTYPE-004",
		Name:        "Date",
		FormulaSet:  "DATE",
		Keywords:    []string{"date", "dob", "date_of_birth", "birth_date", "birthdate", "admission_date", "joining_date", "event_date", "start_date", "end_date", "due_date", "expiry_date", "hire_date", "order_date", "purchase_date", "registration_date", "created_date", "updated_date", "appointment_date", "visit_date", "discharge_date", "delivery_date"},
		Excludes:    []string{"datetime", "timestamp", "created_at", "updated_at"},
		PII:         false,
		Sensitivity: model.SensitivityLow,
	},
	{
		Code:        "HTYPE-005",
		Name:        "Time",
		FormulaSet:  "TIME",
		Keywords:    []string{"time", "check_in", "check_out", "appointment_time", "start_time", "end_time", "arrival_time", "departure_time", "clock_in", "clock_out", "login_time", "logout_time"},
		Excludes:    []string{"datetime", "timestamp"},
		PII:         false,
		Sensitivity: model.SensitivityLow,
	},
	{
		Code:        "HTYPE-006",
		Name:        "DateTime (Combined)",
		FormulaSet:  "DTM",
		Keywords:    []string{"created_at", "updated_at", "timestamp", "submitted_on", "recorded_datetime", "datetime", "logged_at", "modified_at", "deleted_at", "last_login", "last_accessed", "event_datetime"},
		PII:         false,
		Sensitivity: model.SensitivityLow,
	},
	{
		Code:        "HTYPE-033",
		Name:        "Duration / Time Elapsed",
		FormulaSet:  "DUR",
		Keywords:    []string{"duration", "tenure", "years_of_service", "session_length", "time_elapsed", "time_spent", "length", "period", "service_years", "experience", "work_experience"},
		PII:         false,
		Sensitivity: model.SensitivityLow,
	},
	{
		Code:        "HTYPE-041",
		Name:        "Fiscal Period / Academic Year",
		FormulaSet:  "FISC",
		Keywords:    []string{"fiscal_year", "fy", "academic_year", "quarter", "semester", "term", "financial_year", "reporting_period", "ay", "batch", "session", "school_year"},
		PII:         false,
		Sensitivity: model.SensitivityLow,
	},
	{
		Code:        "HTYPE-009",
		Name:        "Phone / Mobile Number",
		FormulaSet:  "PHONE",
		Keywords:    []string{"phone", "mobile", "contact", "tel", "cell", "phone_number", "mobile_number", "contact_number", "telephone", "cell_phone", "home_phone", "work_phone", "office_phone", "emergency_contact", "whatsapp", "fax"},
		PII:         true,
		Sensitivity: model.SensitivityMedium,
	},
	{
		Code:        "HTYPE-010",
		Name:        "Email Address",
		FormulaSet:  "EMAIL",
		Keywords:    []string{"email", "email_address", "mail", "e_mail", "emailid", "email_id", "work_email", "personal_email", "contact_email"},
		PII:         true,
		Sensitivity: model.SensitivityMedium,
	},
	{
		Code:        "HTYPE-011",
		Name:        "Address / Location (Full)",
		FormulaSet:  "ADDR",
		Keywords:    []string{"address", "full_address", "residential_address", "street_address", "home_address", "office_address", "mailing_address", "permanent_address", "temporary_address", "current_address", "location", "addr"},
		Excludes:    []string{"email_address", "ip_address", "web_address"},
		PII:         true,
		Sensitivity: model.SensitivityHigh,
	},
	{
		Code:        "HTYPE-012",
		Name:        "City / District / Region",
		FormulaSet:  "CITY",
		Keywords:    []string{"city", "district", "region", "province", "state", "municipality", "town", "county", "locality", "area", "zone", "suburb"},
		PII:         false,
		Sensitivity: model.SensitivityLow,
	},
	{
		Code:        "HTYPE-013",
		Name:        "Country",
		FormulaSet:  "CNTRY",
		Keywords:    []string{"country", "nationality_country", "country_code", "country_name", "nation", "origin_country", "destination_country"},
		PII:         false,
		Sensitivity: model.SensitivityLow,
	},
	{
		Code:        "HTYPE-014",
		Name:        "Postal Code / ZIP Code",
		FormulaSet:  "POST",
		Keywords:    []string{"zip", "postal_code", "postcode", "pin_code", "zipcode", "zip_code", "pincode", "postal"},
		PII:         false,
		Sensitivity: model.SensitivityLow,
	},
	{
		Code:        "HTYPE-035",
		Name:        "Coordinates (Latitude / Longitude)",
		FormulaSet:  "GEO",
		Keywords:    []string{"latitude", "longitude", "lat", "lng", "lon", "coordinates", "geo_location", "gps", "lat_long", "geolocation"},
		PII:         false,
		Sensitivity: model.SensitivityLow,
	},
	{
		Code:        "HTYPE-015",
		Name:        "Numeric Amount / Currency / Revenue",
		FormulaSet:  "AMT",
		Keywords:    []string{"amount", "revenue", "price", "salary", "cost", "fee", "budget", "income", "expense", "payment", "total_amount", "net_amount", "gross_amount", "balance", "credit", "debit", "invoice_amount", "transaction_amount", "unit_price", "selling_price", "purchase_price", "discount", "tax", "vat", "wages", "bonus", "commission"},
		PII:         false,
		Sensitivity: model.SensitivityLow,
	},
	{
		Code:        "HTYPE-016",
		Name:        "Quantity / Count / Integer Metric",
		FormulaSet:  "QTY",
		Keywords:    []string{"count", "qty", "quantity", "units", "no_of_students", "total", "number_of", "num", "items", "pieces", "stock", "inventory", "headcount", "enrollment", "attendance", "frequency"},
		Excludes:    []string{"account_number", "phone_number", "roll_number"},
		PII:         false,
		Sensitivity: model.SensitivityLow,
	},
	{
		Code:        "HTYPE-017",
		Name:        "Percentage / Rate / Ratio",
		FormulaSet:  "PCT",
		Keywords:    []string{"rate", "percent", "percentage", "pass_rate", "growth", "ratio", "conversion_rate", "success_rate", "failure_rate", "attendance_rate", "completion_rate", "interest_rate", "tax_rate", "pct"},
		PII:         false,
		Sensitivity: model.SensitivityLow,
	},
	{
		Code:        "HTYPE-021",
		Name:        "Score / Rating / Grade / GPA",
		FormulaSet:  "SCORE",
		Keywords:    []string{"score", "grade", "marks", "rating", "gpa", "cgpa", "points", "result", "final_grade", "exam_score", "test_score", "assessment", "performance", "evaluation", "star_rating", "review_score"},
		PII:         false,
		Sensitivity: model.SensitivityLow,
	},
	{
		Code:        "HTYPE-042",
		Name:        "Currency Code",
		FormulaSet:  "CUR",
		Keywords:    []string{"currency", "currency_code", "currency_type", "curr", "money_type", "payment_currency"},
		PII:         false,
		Sensitivity: model.SensitivityLow,
	},
	{
		Code:        "HTYPE-043",
		Name:        "Rank / Ordinal",
		FormulaSet:  "RANK",
		Keywords:    []string{"rank", "position_rank", "standing", "place", "order", "ranking", "leaderboard_position", "class_rank"},
		PII:         false,
		Sensitivity: model.SensitivityLow,
	},
	{
		Code:        "HTYPE-044",
		Name:        "Calculated / Derived Column",
		FormulaSet:  "CALC",
		Keywords:    []string{"total", "net", "gross", "profit", "loss", "balance", "difference", "sum", "subtotal", "grand_total", "net_total", "calculated", "derived", "computed"},
		PII:         false,
		Sensitivity: model.SensitivityLow,
	},
	{
		Code:        "HTYPE-018",
		Name:        "Boolean / Flag / Yes-No Field",
		FormulaSet:  "BOOL",
		Keywords:    []string{"is_active", "flag", "verified", "approved", "has_submitted", "is_valid", "is_enabled", "is_deleted", "active", "enabled", "disabled", "confirmed", "is_", "has_", "can_"},
		PII:         false,
		Sensitivity: model.SensitivityLow,
	},
	{
		Code:        "HTYPE-019",
		Name:        "Category / Classification Label",
		FormulaSet:  "CAT",
		Keywords:    []string{"category", "type", "class", "segment", "group", "stream", "classification", "section", "tier", "level", "division", "branch", "faculty", "subject_type"},
		Excludes:    []string{"blood_type", "currency_type"},
		PII:         false,
		Sensitivity: model.SensitivityLow,
	},
	{
		Code:        "HTYPE-020",
		Name:        "Status Field",
		FormulaSet:  "STAT",
		Keywords:    []string{"status", "stage", "condition", "progress", "state", "workflow_status", "order_status", "payment_status", "application_status", "approval_status", "process_status"},
		Excludes:    []string{"marital_status", "civil_status"},
		PII:         false,
		Sensitivity: model.SensitivityLow,
	},
	{
		Code:        "HTYPE-045",
		Name:        "Survey / Likert Response",
		FormulaSet:  "SURV",
		Keywords:    []string{"response", "satisfaction", "agree_disagree", "survey_q", "likert", "feedback_score", "nps", "csat", "rating_response", "q1", "q2", "q3", "question_"},
		PII:         false,
		Sensitivity: model.SensitivityLow,
	},
	{
		Code:        "HTYPE-046",
		Name:        "Multi-Value / Tag Field",
		FormulaSet:  "MULTI",
		Keywords:    []string{"subjects", "tags", "skills", "interests", "activities", "hobbies", "languages_spoken", "certifications", "keywords", "labels", "categories", "topics"},
		PII:         false,
		Sensitivity: model.SensitivityLow,
	},
	{
		Code:        "HTYPE-024",
		Name:        "Product Name / Item Name",
		FormulaSet:  "PROD",
		Keywords:    []string{"product", "item", "medicine", "service_name", "item_name", "product_name", "good", "merchandise", "article", "drug_name", "medication"},
		PII:         false,
		Sensitivity: model.SensitivityLow,
	},
	{
		Code:        "HTYPE-025",
		Name:        "Product Code / SKU / Barcode",
		FormulaSet:  "SKU",
		Keywords:    []string{"sku", "barcode", "product_code", "item_code", "upc", "ean", "gtin", "article_number", "part_number", "model_number"},
		PII:         false,
		Sensitivity: model.SensitivityLow,
	},
	{
		Code:        "HTYPE-026",
		Name:        "Organization / Company Name",
		FormulaSet:  "ORG",
		Keywords:    []string{"company", "organization", "employer", "school_name", "institution", "org_name", "business_name", "firm", "vendor", "supplier", "client_company", "partner"},
		PII:         false,
		Sensitivity: model.SensitivityLow,
	},
	{
		Code:        "HTYPE-027",
		Name:        "Job Title / Designation / Role",
		FormulaSet:  "JOB",
		Keywords:    []string{"designation", "job_title", "position", "role", "post", "occupation", "profession", "title", "job_role"},
		Excludes:    []string{"product_title", "movie_title", "book_title"},
		PII:         false,
		Sensitivity: model.SensitivityLow,
	},
	{
		Code:        "HTYPE-028",
		Name:        "Department / Division / Unit",
		FormulaSet:  "DEPT",
		Keywords:    []string{"department", "dept", "division", "unit", "ward", "section", "team", "branch", "wing", "bureau"},
		PII:         false,
		Sensitivity: model.SensitivityLow,
	},
	{
		Code:        "HTYPE-034",
		Name:        "Serial Number / Reference Number",
		FormulaSet:  "REFNO",
		Keywords:    []string{"serial_no", "invoice_no", "receipt_no", "ref_code", "tracking_no", "reference_number", "voucher_no", "bill_no", "ticket_no", "confirmation_number", "booking_ref", "order_ref"},
		PII:         false,
		Sensitivity: model.SensitivityLow,
	},
	{
		Code:        "HTYPE-047",
		Name:        "Version / Revision Number",
		FormulaSet:  "VER",
		Keywords:    []string{"version", "revision", "release", "ver", "rev", "version_number", "build", "edition"},
		PII:         false,
		Sensitivity: model.SensitivityLow,
	},
	{
		Code:        "HTYPE-031",
		Name:        "Diagnosis / Medical Condition",
		FormulaSet:  "DIAG",
		Keywords:    []string{"diagnosis", "condition", "icd_code", "illness", "disease", "medical_condition", "health_condition", "disorder", "ailment", "prognosis"},
		PII:         true,
		Sensitivity: model.SensitivityHigh,
	},
	{
		Code:        "HTYPE-032",
		Name:        "Weight / Height / Physical Measurement",
		FormulaSet:  "PHYS",
		Keywords:    []string{"weight", "height", "bmi", "temperature", "bp", "pulse", "blood_pressure", "heart_rate", "body_mass", "waist", "chest", "vital_signs"},
		PII:         true,
		Sensitivity: model.SensitivityMedium,
	},
	{
		Code:        "HTYPE-022",
		Name:        "Text / Notes / Description",
		FormulaSet:  "TEXT",
		Keywords:    []string{"notes", "remarks", "description", "comments", "feedback", "reason", "observation", "summary", "narrative", "details", "explanation", "message", "text", "content", "bio"},
		PII:         false,
		Sensitivity: model.SensitivityLow,
	},
	{
		Code:        "HTYPE-023",
		Name:        "URL / Website",
		FormulaSet:  "URL",
		Keywords:    []string{"url", "website", "link", "profile_url", "source", "web_address", "homepage", "webpage", "site", "href"},
		PII:         false,
		Sensitivity: model.SensitivityLow,
	},
	{
		Code:        "HTYPE-036",
		Name:        "IP Address",
		FormulaSet:  "IP",
		Keywords:    []string{"ip_address", "ip", "user_ip", "client_ip", "server_ip", "source_ip", "destination_ip", "ipv4", "ipv6"},
		PII:         true,
		Sensitivity: model.SensitivityMedium,
	},
	{
		Code:        "HTYPE-037",
		Name:        "File Name / File Path",
		FormulaSet:  "FILE",
		Keywords:    []string{"file", "filename", "file_name", "document_path", "attachment", "file_path", "document", "filepath", "upload", "download"},
		PII:         false,
		Sensitivity: model.SensitivityLow,
	},
}
