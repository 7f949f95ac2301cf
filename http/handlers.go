package handler

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/dgraph-io/ristretto"
	"github.com/flier/gohs/hyperscan"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/julienschmidt/httprouter"

	"pessoas/cache"
	"pessoas/db"
)

var (
	json = jsoniter.ConfigCompatibleWithStandardLibrary

	nascimentoPattern, _ = hyperscan.
				NewBlockDatabase(hyperscan.NewPattern("^\\d{4}\\-(0[1-9]|1[012])\\-(0[1-9]|[12][0-9]|3[01])$", hyperscan.SingleMatch))
)

// Handler carries the process wide capabilities the endpoints need: the
// store pool seam, the shared cache tier and a local apelido hint cache.
// Lifecycle of all three belongs to the composition root.
type Handler struct {
	conn  func() db.PgxIface
	cache *cache.Cache
	hints *ristretto.Cache
}

func New(conn func() db.PgxIface, c *cache.Cache, hints *ristretto.Cache) *Handler {
	return &Handler{conn: conn, cache: c, hints: hints}
}

// NewHintCache builds the process local apelido existence cache.
func NewHintCache() *ristretto.Cache {
	hints, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e7,     // number of keys to track frequency of (10M).
		MaxCost:     1 << 30, // maximum cost of cache (1GB).
		BufferItems: 64,      // number of keys per Get buffer.
	})

	if err != nil {
		log.Fatal(err)
	}

	return hints
}

func (h *Handler) GetPessoa(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	param := ps.ByName("id")
	id, err := uuid.Parse(param)

	if err != nil {
		log.Printf("get pessoa with invalid id %s: %v", param, err)
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if value := h.cache.Lookup(r.Context(), id.String()); value != nil {
		log.Printf("pessoa %s served from cache", id)
		writeValue(w, value)
		return
	}

	log.Printf("pessoa %s served from store", id)

	pessoa, err := db.GetPessoaById(h.conn(), id)

	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if pessoa == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	h.cache.StorePessoa(id.String(), *pessoa)

	writeJSON(w, http.StatusOK, db.Serialize(*pessoa))
}

func (h *Handler) GetPessoas(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	term := r.URL.Query().Get("t")

	if term == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if value := h.cache.Lookup(r.Context(), term); value != nil {
		log.Printf("term %q served from cache", term)
		writeValue(w, value)
		return
	}

	log.Printf("term %q served from store", term)

	pessoas, err := db.FindPessoas(h.conn(), term)

	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if len(pessoas) > 0 {
		h.cache.StorePessoas(term, pessoas)
	}

	views := make([]db.PessoaView, 0, len(pessoas))
	for _, pessoa := range pessoas {
		views = append(views, db.Serialize(pessoa))
	}

	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) GetPessoaCount(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	count, err := db.CountPessoas(h.conn())

	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, countResponse{Total: count})
}

type countResponse struct {
	Total int64 `json:"total"`
}

type createRequest struct {
	Apelido    *string   `json:"apelido"`
	Nome       *string   `json:"nome"`
	Nascimento *string   `json:"nascimento"`
	Stack      *[]string `json:"stack"`
}

func (h *Handler) CreatePessoa(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	body, err := io.ReadAll(r.Body)

	if err != nil || len(body) == 0 {
		w.WriteHeader(http.StatusUnprocessableEntity)
		return
	}

	var request createRequest
	if err := json.Unmarshal(body, &request); err != nil {
		log.Printf("error parsing input: %v", err)
		w.WriteHeader(http.StatusUnprocessableEntity)
		return
	}

	if err := validateCreateRequest(request); err != nil {
		log.Printf("invalid pessoa: %v", err)
		w.WriteHeader(http.StatusUnprocessableEntity)
		return
	}

	apelido := *request.Apelido

	if h.apelidoHinted(apelido) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		return
	}

	// Probe and insert are not atomic: a concurrent create with an
	// overlapping apelido can pass this check and still persist.
	exists, err := db.CheckApelidoExists(h.conn(), apelido)

	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if exists {
		log.Printf("apelido %q already taken", apelido)
		w.WriteHeader(http.StatusUnprocessableEntity)
		return
	}

	pessoa := db.Pessoa{
		Id:         uuid.New(),
		Apelido:    apelido,
		Nome:       *request.Nome,
		Nascimento: *request.Nascimento,
	}
	if request.Stack != nil {
		pessoa.Stack = *request.Stack
	}

	// Cache first. The entry may briefly describe a record the store has
	// not committed yet.
	h.cache.StorePessoa(pessoa.Id.String(), pessoa)
	h.hints.Set("apelido::"+apelido, true, 1)

	affected, err := db.SavePessoa(h.conn(), pessoa)

	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	log.Printf("created pessoa %s, registros afetados: %d", pessoa.Id, affected)

	w.Header().Set("Location", fmt.Sprintf("/pessoas/%s", pessoa.Id))
	writeJSON(w, http.StatusCreated, db.Serialize(pessoa))
}

func (h *Handler) apelidoHinted(apelido string) bool {
	_, found := h.hints.Get("apelido::" + apelido)
	return found
}

func validateCreateRequest(request createRequest) error {
	if request.Apelido == nil || request.Nome == nil || request.Nascimento == nil {
		return fmt.Errorf("field cannot be null")
	}

	if n := utf8.RuneCountInString(*request.Apelido); n == 0 || n > 32 {
		return fmt.Errorf("apelido must have 1 to 32 chars")
	}

	if n := utf8.RuneCountInString(*request.Nome); n == 0 || n > 100 {
		return fmt.Errorf("nome must have 1 to 100 chars")
	}

	if err := validateNascimento(*request.Nascimento); err != nil {
		return err
	}

	if request.Stack != nil {
		for _, item := range *request.Stack {
			if n := utf8.RuneCountInString(item); n == 0 || n > 32 {
				return fmt.Errorf("stack item must have 1 to 32 chars")
			}
		}
	}

	return nil
}

// validateNascimento requires the YYYY-MM-DD shape and a real calendar date,
// so 2023-02-30 fails even though it matches the pattern.
func validateNascimento(nascimento string) error {
	if !nascimentoPattern.MatchString(nascimento) {
		return fmt.Errorf("field nascimento invalid")
	}

	if _, err := time.Parse("2006-01-02", nascimento); err != nil {
		return fmt.Errorf("field nascimento invalid")
	}

	return nil
}

func writeValue(w http.ResponseWriter, value *cache.Value) {
	if value.Many != nil {
		writeJSON(w, http.StatusOK, value.Many)
		return
	}

	writeJSON(w, http.StatusOK, value.Single)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	payload, err := json.Marshal(body)

	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if _, err := w.Write(payload); err != nil {
		log.Println(err)
	}
}
