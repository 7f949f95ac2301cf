package db

import (
	"testing"

	"github.com/google/uuid"
)

func TestSerialize_keepsOnlyYear(t *testing.T) {
	pessoa := Pessoa{
		Id:         uuid.New(),
		Apelido:    "josé",
		Nome:       "José",
		Nascimento: "2000-10-01",
		Stack:      []string{"Go", "Rust"},
	}

	view := Serialize(pessoa)

	if view.Nascimento != "2000" {
		t.Errorf("expected nascimento 2000, got %s", view.Nascimento)
	}

	if view.Apelido != "josé" || view.Nome != "José" {
		t.Error("apelido and nome must pass through unchanged")
	}

	if len(view.Stack) != 2 {
		t.Error("stack must pass through unchanged")
	}
}

func TestSerialize_isIdempotentOnYear(t *testing.T) {
	pessoa := Pessoa{Nascimento: "2000"}

	if view := Serialize(pessoa); view.Nascimento != "2000" {
		t.Errorf("expected nascimento 2000, got %s", view.Nascimento)
	}
}

func TestSerialize_shortNascimentoUnchanged(t *testing.T) {
	pessoa := Pessoa{Nascimento: "99"}

	if view := Serialize(pessoa); view.Nascimento != "99" {
		t.Errorf("expected nascimento 99, got %s", view.Nascimento)
	}
}

func TestSearchVector(t *testing.T) {
	pessoa := Pessoa{
		Apelido:    "José",
		Nome:       "José Roberto",
		Nascimento: "2000-10-01",
		Stack:      []string{"Go", "Rust"},
	}

	if vector := pessoa.SearchVector(); vector != "joséjosé robertogo,rust" {
		t.Errorf("unexpected search vector %q", vector)
	}
}

func TestSearchVector_withoutStack(t *testing.T) {
	pessoa := Pessoa{
		Apelido:    "ana",
		Nome:       "Ana",
		Nascimento: "1990-01-01",
	}

	if vector := pessoa.SearchVector(); vector != "anaana" {
		t.Errorf("unexpected search vector %q", vector)
	}
}
