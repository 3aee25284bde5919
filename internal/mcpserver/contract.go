package mcpserver

// PublishingConventions describes how a vault's layout maps to the published
// site. LLM consumers should follow it when creating or moving documents.
const PublishingConventions = `# Quire Publishing Conventions

Every ` + "`" + `.md` + "`" + ` file in the vault becomes one page of the site.

## URLs

- A page's URL is ` + "`" + `/<slug>/` + "`" + `, where the slug is the file name without
  ` + "`" + `.md` + "`" + `, lower-cased, with punctuation removed and runs of spaces or
  hyphens replaced by a single ` + "`" + `-` + "`" + `. ` + "`" + `My Great Idea!.md` + "`" + ` → ` + "`" + `/my-great-idea/` + "`" + `.
- The directory a document lives in does not appear in its URL. Two documents
  with the same file name in different directories overwrite each other; the
  one with the later path wins.
- Use the ` + "`" + `slugify` + "`" + ` tool to check a slug before naming a file.

## Home page

- A document whose file name equals the vault directory name (case-insensitive)
  is the home page, wherever it lives. In a vault called ` + "`" + `Garden` + "`" + `,
  ` + "`" + `Garden.md` + "`" + ` is published at ` + "`" + `/` + "`" + `.
- Without one, a generated "Site Index" page is used.

## Navigation

- Top-level documents are listed directly in the navigation bar.
- Each directory becomes a dropdown labelled with the directory name. A document
  named after its directory (` + "`" + `Projects/Projects.md` + "`" + `) is the dropdown's
  landing page and is listed first.
- Documents whose name starts with ` + "`" + `_` + "`" + ` are published but left out of
  the navigation.

## Links

- ` + "`" + `[[Target]]` + "`" + ` becomes a link to ` + "`" + `<slug of Target>.html` + "`" + `, relative to
  the current page; ` + "`" + `[[Target|shown text]]` + "`" + ` changes the link text.
- ` + "`" + `![[Target]]` + "`" + ` becomes an image reference with the same target rule.
- ` + "`" + `==text==` + "`" + ` is highlighted.

## Titles

- A ` + "`" + `title` + "`" + ` field in YAML frontmatter sets the page title; otherwise the
  file name is used.

## Not published

- The ` + "`" + `Resources` + "`" + ` directory (configurable), anything inside a dot
  directory such as ` + "`" + `.obsidian` + "`" + `, ` + "`" + `.canvas` + "`" + ` files and paths matched
  by ` + "`" + `.publishignore` + "`" + ` (gitignore syntax).
- Every other non-Markdown file is copied to the same relative path.
`
