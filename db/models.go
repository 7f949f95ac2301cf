package db

import (
	"strings"

	"github.com/google/uuid"
)

type Pessoa struct {
	Id         uuid.UUID `json:"id"`
	Apelido    string    `json:"apelido"`
	Nome       string    `json:"nome"`
	Nascimento string    `json:"nascimento"`
	Stack      []string  `json:"stack"`
}

// PessoaView is the external representation of a Pessoa. Nascimento holds
// only the year component.
type PessoaView struct {
	Id         uuid.UUID `json:"id"`
	Apelido    string    `json:"apelido"`
	Nome       string    `json:"nome"`
	Nascimento string    `json:"nascimento"`
	Stack      []string  `json:"stack"`
}

// Serialize converts a stored Pessoa to its external view. The nascimento
// field keeps only its year; serializing an already serialized record leaves
// the year unchanged.
func Serialize(pessoa Pessoa) PessoaView {
	return PessoaView{
		Id:         pessoa.Id,
		Apelido:    pessoa.Apelido,
		Nome:       pessoa.Nome,
		Nascimento: nascimentoYear(pessoa.Nascimento),
		Stack:      pessoa.Stack,
	}
}

func nascimentoYear(nascimento string) string {
	if len(nascimento) < 4 {
		return nascimento
	}
	return nascimento[:4]
}

// SearchVector derives the lower cased apelido + nome + stack blob persisted
// alongside the record for substring search.
func (pessoa Pessoa) SearchVector() string {
	vector := pessoa.Apelido + pessoa.Nome
	if pessoa.Stack != nil {
		vector += strings.Join(pessoa.Stack, ",")
	}
	return strings.ToLower(vector)
}
