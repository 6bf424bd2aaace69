// Package model defines the normalized request/response contract between
// flows and language model providers, plus a deterministic ScriptedModel for
// tests and offline runs. Provider adapters live in subpackages (openai,
// anthropic) and translate the normalized shapes into vendor SDK calls.
package model
