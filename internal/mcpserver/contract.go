package mcpserver

// TranscriptFormat describes how vaultscribe finds audio links and what it
// writes back, for LLM clients that prepare or read notes.
const TranscriptFormat = `# vaultscribe Transcript Format

## Audio links

A note references audio with a wikilink to the file name:

- ` + "`" + `[[memo.m4a]]` + "`" + ` plain link
- ` + "`" + `![[memo.m4a]]` + "`" + ` embed

Only names ending in a configured audio extension (default: m4a) are picked up.
The name may include a folder (` + "`" + `[[recordings/memo.m4a]]` + "`" + `). When no file
exists at that path the first file in the vault with the same name
(case-insensitive) is used.

## What transcription does

For every audio link, in document order:

1. The audio is transcribed.
2. The first embed of that name is removed from the note, or the first plain
   link if there is no embed.
3. A section is appended at the end of the note:

` + "```" + `markdown
# <title>
![[memo.m4a]]

<transcript>
` + "```" + `

The title is a short generated summary when title generation is enabled,
otherwise ` + "`" + `Transcript for <file name>` + "`" + `.

The note is saved after each link, so a failure part-way keeps earlier
transcripts. Links that cannot be found or transcribed are left untouched.

## Adding audio

Upload with the ` + "`" + `upload_audio` + "`" + ` tool. Pass ` + "`" + `note` + "`" + ` to have an embed of the stored
vault path (for example ` + "`" + `![[attachments/memo.m4a]]` + "`" + `) appended to that note, then call ` + "`" + `transcribe_note` + "`" + `.
`
