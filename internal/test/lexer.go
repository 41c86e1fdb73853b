// Package test holds helpers shared by the package tests.
package test

import (
	"math/rand"
	"strings"
)

// validTokens is a ';' separated list of lexemes that lex on their own. Line comments
// carry their terminating newline.
const validTokens = "int;bool;if;else;while;for;print;and;or;true;false;x;y1;_tmp;iterator;0;7;123;2147483647;" +
	"(;);{;};,;=;==;!=;<;<=;>;>=;+;-;*;%;^;+=;-=;*=;/=;%=;++;--;" +
	"/* block comment */;/**/;//comment\n;// another one\n;\n"

// GetRandomTokens joins size random lexemes with a single space.
func GetRandomTokens(size int) string {
	return GetRandomTokensWithSep(size, " ")
}

func GetRandomTokensWithSep(size int, sep string) string {
	valid := strings.Split(validTokens, ";")

	var toks []string
	for len(toks) < size {
		toks = append(toks, valid[rand.Intn(len(valid))])
	}

	return strings.Join(toks, sep)
}
