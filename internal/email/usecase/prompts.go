package usecase

const extractionPrompt = `You are a content editor AI. Your task is to process the text of a newsletter and remove all content related to
promotions, advertisements, sponsorships, sales pitches, subscription information, and administrative details.
Retain only the content that focuses on delivering news, updates, and information relevant to the newsletter's
theme or audience. Ensure the resulting output is coherent and focuses solely on newsworthy content.

Respond with a single JSON object and nothing else, using exactly this shape:
{
  "name": "the inferred name of the newsletter",
  "topics": [
    {
      "header": "the header of the topic",
      "summary": "a brief summary of the topic",
      "news": [{"title": "the title of the news item", "content": "the content of the news item"}]
    }
  ],
  "sources": [
    {"url": "the url of the source", "date": "the date of the source", "title": "the title of the source", "publisher": "the publisher of the source"}
  ]
}`

const senderPrompt = `Your task is to find the original sender of a newsletter. You will be given the raw content of an email
that may have been forwarded, you will need to identify the original sender.

Here is an example of a forwarded email, where the original sender is "TLDR AI <dan@tldrnewsletter.com>":

sender: Jac Lemieux <jalemieux@gmail.com>
subject: Fwd: Hugging Face's Open-R1, OpenAI's Model for Government Use, DeepSeek: All About Apps Now
text_excerpt: ---------- Forwarded message --------- From: TLDR AI <dan@tldrnewsletter.com> Date: Wed, Jan 29, 2

Answer with the display name of the newsletter that originally sent the email.
Respond with a single JSON object and nothing else: {"sender": "the inferred sender"}`
