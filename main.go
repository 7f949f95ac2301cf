package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/julienschmidt/httprouter"

	"pessoas/cache"
	"pessoas/db"
	handler "pessoas/http"
)

import _ "net/http/pprof"

func main() {

	log.Println("Starting server on 9999")

	time.Sleep(10 * time.Second) // wait for db is up

	conn := db.GetConnection()
	defer conn.Close()

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379/"
	}

	store, err := cache.NewRedisStore(redisURL)
	if err != nil {
		log.Fatal(err)
	}

	h := handler.New(db.GetConnection, cache.New(store), handler.NewHintCache())

	router := httprouter.New()

	router.POST("/pessoas", h.CreatePessoa)
	router.GET("/pessoas", h.GetPessoas)
	router.GET("/pessoas/:id", h.GetPessoa)
	router.GET("/contagem-pessoas", h.GetPessoaCount)

	log.Fatal(http.ListenAndServe(":9999", monitor(router)))
}

func monitor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("monitor: %s %s", r.Method, r.URL.RequestURI())
		next.ServeHTTP(w, r)
	})
}
