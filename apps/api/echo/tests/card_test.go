package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/darasalearn/darasa/apps/api/echo"
	"github.com/darasalearn/darasa/core/card"
)

func createCard(t *testing.T, token, courseID, front, back string) card.Flashcard {
	t.Helper()

	body := marchallObj(t, map[string]string{"front": front, "back": back})
	req, rec := newAuthRequest(http.MethodPost, "/v1/courses/"+courseID+"/cards", token, body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("createCard(): code = %v; body %s", rec.Code, rec.Body.String())
	}

	var fc card.Flashcard
	if err := json.Unmarshal(rec.Body.Bytes(), &fc); err != nil {
		t.Fatalf("createCard(): %v", err)
	}
	return fc
}

func queryCards(t *testing.T, token, courseID string) []card.Flashcard {
	t.Helper()

	req, rec := newAuthRequest(http.MethodGet, "/v1/courses/"+courseID+"/cards", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("queryCards(): code = %v", rec.Code)
	}

	var cards []card.Flashcard
	if err := json.Unmarshal(rec.Body.Bytes(), &cards); err != nil {
		t.Fatalf("queryCards(): %v", err)
	}
	return cards
}

func Test_cardApi(t *testing.T) {
	db.Reset()
	resetAdminCheck()

	admin := createAdmin(t, "cardadmin")
	token := getToken(t, admin)
	crs := createCourse(t, token, "Chemistry Basics")
	base := "/v1/courses/" + crs.ID + "/cards"

	t.Run("create appends at the end of the deck", func(t *testing.T) {
		c1 := createCard(t, token, crs.ID, "H2O", "Water")
		c2 := createCard(t, token, crs.ID, "NaCl", "Table salt")
		c3 := createCard(t, token, crs.ID, "CO2", "Carbon dioxide")
		if c1.Position != 1 || c2.Position != 2 || c3.Position != 3 {
			t.Errorf("positions = %d,%d,%d; want 1,2,3", c1.Position, c2.Position, c3.Position)
		}
	})

	t.Run("front and back are required", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"front": "", "back": ""})
		req, rec := newAuthRequest(http.MethodPost, base, token, body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"front": "this field is required", "back": "this field is required"}),
		}, rec)
	})

	t.Run("reorder renumbers the whole deck", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, base+"/reorder", token,
			marchallObj(t, echoapi.CardReorderRequest{Source: 0, Destination: 2}))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}

		cards := queryCards(t, token, crs.ID)
		fronts := []string{"NaCl", "CO2", "H2O"}
		for i, c := range cards {
			if c.Front != fronts[i] || c.Position != i+1 {
				t.Errorf("deck[%d] = %q pos %d; want %q pos %d", i, c.Front, c.Position, fronts[i], i+1)
			}
		}
	})

	t.Run("update replaces both faces", func(t *testing.T) {
		cards := queryCards(t, token, crs.ID)
		req, rec := newAuthRequest(http.MethodPut, base+"/"+cards[0].ID, token,
			marchallObj(t, card.UpdateCard{Front: "KCl", Back: "Potassium chloride"}))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}

		var fc card.Flashcard
		if err := json.Unmarshal(rec.Body.Bytes(), &fc); err != nil {
			t.Fatal(err)
		}
		if fc.Front != "KCl" || fc.Back != "Potassium chloride" {
			t.Errorf("card = %+v; want updated faces", fc)
		}
	})

	t.Run("delete closes the position gap", func(t *testing.T) {
		cards := queryCards(t, token, crs.ID)
		req, rec := newAuthRequest(http.MethodDelete, base+"/"+cards[1].ID, token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("code = %v", rec.Code)
		}

		remaining := queryCards(t, token, crs.ID)
		if len(remaining) != 2 {
			t.Fatalf("deck = %d cards; want 2", len(remaining))
		}
		for i, c := range remaining {
			if c.Position != i+1 {
				t.Errorf("deck[%d] position = %d; want %d", i, c.Position, i+1)
			}
		}
	})
}
