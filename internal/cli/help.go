package cli

const rootLong = `codesearch indexes repository files into SQLite or PostgreSQL and answers
search queries for a user, returning only files from repositories the user
can read, with highlighted snippets.

QUERY SYNTAX
  hello world          files containing both words (any case)
  "hello world"        the exact phrase
  /wor.d/              a regular expression
  a || b               either side matches
  (a || b) c           grouping
  path:src/ extension:go  qualifiers: namespace, path, filename, extension

  Backslash escapes the next character inside words, phrases and regexes.`

const rootExamples = `  codesearch init --db code.db
  codesearch index ./myrepo --db code.db --project 1 --name myrepo --url https://git.example.com/me/myrepo
  codesearch grant --db code.db --project 1 --user 7
  codesearch search --db code.db -u 7 'func main extension:go'
  codesearch serve --config codesearch.toml`
