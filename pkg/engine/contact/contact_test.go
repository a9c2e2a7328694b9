package contact

import (
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/David-Botos/data-refinery/pkg/audit"
	"github.com/David-Botos/data-refinery/pkg/model"
)

func runContact(t *testing.T, cols []string, sets []string, values ...[]interface{}) (*Output, *audit.Collector) {
	t.Helper()
	ds, err := model.FromColumns(cols, values)
	if err != nil {
		t.Fatalf("FromColumns: %v", err)
	}
	htypes := model.HtypeMap{}
	for i, c := range cols {
		htypes[c] = model.HtypeMatch{HtypeCode: "HTYPE-TEST", FormulaSet: sets[i]}
	}
	sink := audit.NewCollector()
	out, err := NewEngine(Options{}, zaptest.NewLogger(t)).Run("job-1", ds, sink, htypes)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return out, sink
}

func column(t *testing.T, out *Output, name string) []interface{} {
	t.Helper()
	values, ok := out.Dataset.ColumnByName(name)
	if !ok {
		t.Fatalf("column %q missing from %v", name, out.Dataset.Columns())
	}
	return values
}

func flagsByFormula(out *Output) map[string]model.PendingFlag {
	m := make(map[string]model.PendingFlag)
	for _, f := range out.Flags {
		m[f.FormulaID] = f
	}
	return m
}

func assertColumn(t *testing.T, got, want []interface{}) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d values, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if !model.Equal(got[i], want[i]) {
			t.Errorf("row %d = %#v, want %#v", i, got[i], want[i])
		}
	}
}

func TestPhoneColumn(t *testing.T) {
	out, sink := runContact(t, []string{"phone"}, []string{"PHONE"}, []interface{}{
		"(555) 123-4567",
		"555.987.6543 ext 12",
		"0000000000",
		"+44 7911 123456",
		nil,
		"+977 9841234567",
	})

	assertColumn(t, column(t, out, "phone"), []interface{}{
		"+15551234567", "+15559876543", nil, "+447911123456", nil, "+9779841234567",
	})
	assertColumn(t, column(t, out, "phone_extension"), []interface{}{nil, "12", nil, nil, nil, nil})
	assertColumn(t, column(t, out, "phone_type"), []interface{}{nil, nil, nil, "Mobile", nil, "Mobile"})

	flags := flagsByFormula(out)
	if f, ok := flags["PHONE-10"]; !ok || f.AffectedCount != 2 {
		t.Errorf("PHONE-10 flag = %+v", f)
	}
	for _, id := range []string{"PHONE-01", "PHONE-05", "PHONE-06"} {
		if _, ok := flags[id]; ok {
			t.Errorf("unexpected %s flag", id)
		}
	}

	var pending int
	for _, e := range sink.ByFormula("PHONE-10") {
		if !e.WasAutoApplied && e.Action == "pending_review_missing_phone" {
			pending++
		}
	}
	if pending != 1 {
		t.Errorf("PHONE-10 dual write entries = %d, want 1", pending)
	}
	for _, id := range []string{"PHONE-07", "PHONE-08", "PHONE-03", "PHONE-09", "PHONE-11"} {
		if len(sink.ByFormula(id)) == 0 {
			t.Errorf("%s did not log", id)
		}
	}
}

func TestPhoneMultiNumberAndDuplicates(t *testing.T) {
	out, _ := runContact(t, []string{"customer_id", "phone"}, []string{"UID", "PHONE"},
		[]interface{}{"C1", "C2", "C3"},
		[]interface{}{"555-123-4567 / 555-765-4321", "555-111-2222, 555-333-4444", "555-123-4567 / 555-765-4321"},
	)
	flags := flagsByFormula(out)

	multi, ok := flags["PHONE-01"]
	if !ok || multi.AffectedCount != 3 {
		t.Fatalf("PHONE-01 flag = %+v", multi)
	}
	if multi.Details["multi_number_percentage"] != 100.0 {
		t.Errorf("multi_number_percentage = %v", multi.Details["multi_number_percentage"])
	}

	dup, ok := flags["PHONE-06"]
	if !ok || dup.AffectedCount != 2 {
		t.Fatalf("PHONE-06 flag = %+v", dup)
	}
	if dup.Details["id_column"] != "customer_id" {
		t.Errorf("id_column = %v", dup.Details["id_column"])
	}
}

func TestEmailColumn(t *testing.T) {
	out, sink := runContact(t, []string{"email"}, []string{"EMAIL"}, []interface{}{
		" John.Doe@Example.com ",
		"test@test.com",
		"a@b.com; c@d.com",
		"jane@gmial.com",
		"bad-email",
		"x@mailinator.com",
		"john.doe@example.com",
	})

	assertColumn(t, column(t, out, "email"), []interface{}{
		"john.doe@example.com", nil, "a@b.com", "jane@gmial.com", "bad-email", "x@mailinator.com", "john.doe@example.com",
	})
	assertColumn(t, column(t, out, "email_secondary"), []interface{}{nil, nil, "c@d.com", nil, nil, nil, nil})

	flags := flagsByFormula(out)
	want := map[string]int{"EMAIL-02": 1, "EMAIL-04": 2, "EMAIL-05": 1, "EMAIL-08": 1, "EMAIL-10": 1}
	for id, n := range want {
		if f, ok := flags[id]; !ok || f.AffectedCount != n {
			t.Errorf("%s affected = %d, want %d", id, f.AffectedCount, n)
		}
	}
	if _, ok := flags["EMAIL-03"]; ok {
		t.Errorf("unexpected EMAIL-03 flag")
	}
	suggestions := flags["EMAIL-10"].Details["suggestions"].([]map[string]string)
	if suggestions[0]["suggested"] != "jane@gmail.com" {
		t.Errorf("typo suggestion = %v", suggestions)
	}
	if got := column(t, out, "email")[3]; got != "jane@gmial.com" {
		t.Errorf("typo fix must not be auto-applied, got %v", got)
	}
	if len(sink.ByFormula("EMAIL-07")) != 1 {
		t.Errorf("EMAIL-07 entries = %d, want 1", len(sink.ByFormula("EMAIL-07")))
	}
}

func TestAddressColumn(t *testing.T) {
	out, _ := runContact(t, []string{"address"}, []string{"ADDR"}, []interface{}{
		"123 main st.\nApt 4",
		"N/A",
		"PO Box 123",
		"45 oak AVE NW",
	})
	assertColumn(t, column(t, out, "address"), []interface{}{
		"123 Main Street Apartment 4", nil, "PO Box 123", "45 Oak Avenue NW",
	})
	flags := flagsByFormula(out)
	if f := flags["ADDR-06"]; f.AffectedCount != 1 || f.AffectedRows[0] != 1 {
		t.Errorf("ADDR-06 flag = %+v", f)
	}
	if f := flags["ADDR-07"]; f.AffectedCount != 1 || f.AffectedRows[0] != 2 {
		t.Errorf("ADDR-07 flag = %+v", f)
	}
	if _, ok := flags["ADDR-03"]; ok {
		t.Errorf("unexpected ADDR-03 flag")
	}
}

func TestLocationColumns(t *testing.T) {
	out, _ := runContact(t,
		[]string{"city", "country", "zip"},
		[]string{"CITY", "CNTRY", "POST"},
		[]interface{}{"ktm", "new york", "New York", "new yrok", "los angeles", "los angeles", nil},
		[]interface{}{"Nepal", "usa", "US", "united states", "USA", "usa", nil},
		[]interface{}{44600, "10001", "100011234", "1000l", "90001", "10001", nil},
	)

	assertColumn(t, column(t, out, "city"), []interface{}{
		"Kathmandu", "New York", "New York", "New Yrok", "Los Angeles", "Los Angeles", nil,
	})
	assertColumn(t, column(t, out, "country"), []interface{}{
		"Nepal", "United States", "United States", "United States", "United States", "United States", nil,
	})
	assertColumn(t, column(t, out, "zip"), []interface{}{
		"44600", "10001", "10001-1234", "1000l", "90001", "10001", nil,
	})

	flags := flagsByFormula(out)
	if f := flags["CITY-02"]; f.AffectedCount != 1 || f.AffectedRows[0] != 3 {
		t.Errorf("CITY-02 flag = %+v", f)
	}
	if _, ok := flags["CITY-04"]; ok {
		t.Errorf("unexpected CITY-04 flag")
	}
	if f := flags["CNTRY-06"]; f.AffectedCount != 1 || f.Details["dominant_country"] != "United States" {
		t.Errorf("CNTRY-06 flag = %+v", f)
	}
	if f := flags["POST-02"]; f.AffectedCount != 1 || f.AffectedRows[0] != 3 {
		t.Errorf("POST-02 flag = %+v", f)
	}
	if f := flags["POST-04"]; f.AffectedCount != 1 {
		t.Errorf("POST-04 flag = %+v", f)
	}
	if f := flags["POST-05"]; f.AffectedCount != 2 || f.Details["compared_column"] != "city" {
		t.Errorf("POST-05 flag = %+v", f)
	}
}

func TestCoordinateColumns(t *testing.T) {
	out, _ := runContact(t, []string{"lat", "lng"}, []string{"GEO", "GEO"},
		[]interface{}{`27°42'15"N`, "27.7172453", "0", "120.5"},
		[]interface{}{`85°19'30"E`, "85.32396", "0", "45.2"},
	)
	assertColumn(t, column(t, out, "lat"), []interface{}{27.704167, 27.717245, 0.0, 120.5})
	assertColumn(t, column(t, out, "lng"), []interface{}{85.325, 85.32396, 0.0, 45.2})

	flags := flagsByFormula(out)
	if f := flags["GEO-01"]; f.AffectedCount != 1 || f.AffectedRows[0] != 3 {
		t.Errorf("GEO-01 flag = %+v", f)
	}
	if f := flags["GEO-03"]; f.AffectedCount != 1 || f.AffectedRows[0] != 2 {
		t.Errorf("GEO-03 flag = %+v", f)
	}
	if f := flags["GEO-06"]; f.AffectedCount != 1 || f.AffectedColumns[0] != "lat" {
		t.Errorf("GEO-06 flag = %+v", f)
	}
}

func TestHelpers(t *testing.T) {
	if got := E164("5551234567", "US"); got != "+15551234567" {
		t.Errorf("E164 = %s", got)
	}
	if got, ok := PhoneCountry("+977 9841234567"); !ok || got != "NP" {
		t.Errorf("PhoneCountry = %s, %v", got, ok)
	}
	if !IsPhonePlaceholder("777-7777") || IsPhonePlaceholder("555-1234") {
		t.Errorf("IsPhonePlaceholder misclassified")
	}
	for in, want := range map[string]string{"UK": "GB", "deu": "DE", "japan": "JP", "Atlantis": ""} {
		if got, _ := NormalizeCountry(in); got != want {
			t.Errorf("NormalizeCountry(%q) = %q, want %q", in, got, want)
		}
	}
	if got, ok := FuzzyCountry("Germnay", 2); !ok || got != "DE" {
		t.Errorf("FuzzyCountry = %s, %v", got, ok)
	}
	if got := PlaceTitle("washington d.c."); got != "Washington D.C." {
		t.Errorf("PlaceTitle = %s", got)
	}
	if got := PlaceTitle("martha's vineyard"); got != "Martha's Vineyard" {
		t.Errorf("PlaceTitle = %s", got)
	}
	if d, ok := ParseDMS(`33° 52' 10" S`); !ok || d != -33.869444 {
		t.Errorf("ParseDMS = %v, %v", d, ok)
	}
	if !ValidPostalCode("SW1A 1AA", "GB") || ValidPostalCode("1234", "US") {
		t.Errorf("ValidPostalCode misclassified")
	}
}
